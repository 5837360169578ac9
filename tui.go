package main

import (
	"fmt"
	"strings"
	"time"

	"workchat/models"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

var (
	app                *tview.Application
	pages              *tview.Pages
	textArea           *tview.TextArea
	textView           *tview.TextView
	position           *tview.TextView
	helpView           *tview.TextView
	flex               *tview.Flex
	focusSwitcher      = map[tview.Primitive]tview.Primitive{}
	scrollToEndEnabled = true
	indexLine          = "F12 to show keys help; bot resp mode: %v; chat: %s; toolUse: %v; model: %s\nAPI_URL: %s"
	helpText           = `
[yellow]Esc[white]: send msg
[yellow]PgUp/Down[white]: switch focus
[yellow]F1[white]: manage chats
[yellow]F5[white]: toggle system
[yellow]F12[white]: this help

Tool calls the bot makes run against the workspace directory;
their results show up as TOOL RESULT entries.

Press Enter to go back
`
)

func init() {
	theme := tview.Theme{
		PrimitiveBackgroundColor:    tcell.ColorDefault,
		ContrastBackgroundColor:     tcell.ColorGray,
		MoreContrastBackgroundColor: tcell.ColorNavy,
		BorderColor:                 tcell.ColorGray,
		TitleColor:                  tcell.ColorRed,
		GraphicsColor:               tcell.ColorBlue,
		PrimaryTextColor:            tcell.ColorOlive,
		SecondaryTextColor:          tcell.ColorYellow,
		TertiaryTextColor:           tcell.ColorOrange,
		InverseTextColor:            tcell.ColorPurple,
		ContrastSecondaryTextColor:  tcell.ColorLime,
	}
	tview.Styles = theme
	app = tview.NewApplication()
	pages = tview.NewPages()
	textArea = tview.NewTextArea().
		SetPlaceholder("Type your prompt...")
	textArea.SetBorder(true).SetTitle("input")
	textView = tview.NewTextView().
		SetDynamicColors(true).
		SetRegions(true).
		SetChangedFunc(func() {
			app.Draw()
		})
	textView.SetBorder(true).SetTitle("chat")
	focusSwitcher[textArea] = textView
	focusSwitcher[textView] = textArea
	position = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	helpView = tview.NewTextView().
		SetDynamicColors(true)
	helpView.SetBorder(true).SetTitle("help")
	flex = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(textView, 0, 40, false).
		AddItem(textArea, 0, 10, true).
		AddItem(position, 0, 2, false)
	textArea.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape {
			sendUserMsg()
			return nil
		}
		return event
	})
	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyF1:
			showChatActions()
			return nil
		case tcell.KeyF5:
			cfg.ShowSys = !cfg.ShowSys
			textView.SetText(chatToText(chatBody.Messages, cfg.ShowSys))
			return nil
		case tcell.KeyF12:
			helpView.SetText(helpText)
			pages.AddPage("help", helpView, true, true)
			return nil
		case tcell.KeyPgUp, tcell.KeyPgDn:
			if cur := app.GetFocus(); focusSwitcher[cur] != nil {
				app.SetFocus(focusSwitcher[cur])
			}
			return nil
		case tcell.KeyEnter:
			if pages.HasPage("help") {
				pages.RemovePage("help")
				return nil
			}
		}
		return event
	})
}

func sendUserMsg() {
	msg := strings.TrimSpace(textArea.GetText())
	if msg == "" || botRespMode {
		return
	}
	textArea.SetText("", true)
	fmt.Fprintf(textView, "\n[-:-:b](%d) %s[-:-:-]\n%s\n",
		len(chatBody.Messages), roleToIcon(cfg.UserRole), msg)
	if scrollToEndEnabled {
		textView.ScrollToEnd()
	}
	go showSpinner()
	chatRoundChan <- &models.ChatRoundReq{UserMsg: msg}
}

func showChatActions() {
	chatOpts := []string{"cancel", "new"}
	chatList, err := loadHistoryChats()
	if err != nil {
		logger.Error("failed to load chat history", "error", err)
		chatList = []string{}
	}
	chatActModal := tview.NewModal().
		SetText("Chat actions:").
		AddButtons(append(chatOpts, chatList...)).
		SetDoneFunc(func(buttonIndex int, buttonLabel string) {
			switch buttonLabel {
			case "new":
				startNewChat()
			case "cancel":
			default:
				history, err := loadHistoryChat(buttonLabel)
				if err != nil {
					logger.Error("failed to load chat", "error", err, "name", buttonLabel)
					break
				}
				chatBody.Messages = history
				textView.SetText(chatToText(chatBody.Messages, cfg.ShowSys))
				updateStatusLine()
			}
			pages.RemovePage("chats")
		})
	pages.AddPage("chats", chatActModal, true, true)
}

// inpired by https://github.com/rivo/tview/issues/225
func showSpinner() {
	spinners := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	var i int
	for botRespMode || toolRunningMode {
		time.Sleep(400 * time.Millisecond)
		spin := i % len(spinners)
		app.QueueUpdateDraw(func() {
			switch {
			case toolRunningMode:
				textArea.SetTitle(spinners[spin] + " tool")
			case botRespMode:
				textArea.SetTitle(spinners[spin] + " " + cfg.AssistantRole)
			default:
				textArea.SetTitle("input")
			}
		})
		i++
	}
	app.QueueUpdateDraw(func() {
		textArea.SetTitle("input")
	})
}

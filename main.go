package main

import (
	"flag"
	"fmt"
)

func main() {
	apiPort := flag.Int("port", 0, "port to host api")
	flag.Parse()
	initProgram()
	if apiPort != nil && *apiPort > 3000 {
		// api mode, no tui
		ListenToRequests(fmt.Sprintf("%d", *apiPort))
		return
	}
	textView.SetText(chatToText(chatBody.Messages, cfg.ShowSys))
	updateStatusLine()
	pages.AddPage("main", flex, true, true)
	if err := app.SetRoot(pages,
		true).EnableMouse(true).EnablePaste(true).Run(); err != nil {
		logger.Error("failed to start tview app", "error", err)
		return
	}
}

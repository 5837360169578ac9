package main

import (
	"encoding/json"
	"fmt"
	"time"

	"workchat/models"
)

var (
	chatMap = make(map[string]*models.Chat)
)

func historyToSJSON(msgs []models.RoleMsg) (string, error) {
	data, err := json.Marshal(msgs)
	if err != nil {
		return "", err
	}
	if data == nil {
		return "", fmt.Errorf("nil data")
	}
	return string(data), nil
}

func updateStorageChat(name string, msgs []models.RoleMsg) error {
	var err error
	chat, ok := chatMap[name]
	if !ok {
		err = fmt.Errorf("failed to find active chat; key:%s", name)
		logger.Error("failed to find active chat", "key", name)
		return err
	}
	chat.Msgs, err = historyToSJSON(msgs)
	if err != nil {
		return err
	}
	chat.UpdatedAt = time.Now()
	_, err = store.UpsertChat(chat)
	return err
}

func loadHistoryChats() ([]string, error) {
	chats, err := store.ListChats()
	if err != nil {
		return nil, err
	}
	resp := []string{}
	for _, chat := range chats {
		if chat.Name == "" {
			chat.Name = fmt.Sprintf("%d_%v", chat.ID, chat.CreatedAt.Unix())
		}
		resp = append(resp, chat.Name)
		chatMap[chat.Name] = &chat
	}
	return resp, nil
}

func loadHistoryChat(chatName string) ([]models.RoleMsg, error) {
	chat, ok := chatMap[chatName]
	if !ok {
		err := fmt.Errorf("failed to read chat")
		logger.Error("failed to read chat", "name", chatName)
		return nil, err
	}
	activeChatName = chatName
	return chat.ToHistory()
}

func loadOldChatOrGetNew() []models.RoleMsg {
	if _, err := loadHistoryChats(); err != nil {
		logger.Warn("failed to list history chats", "error", err)
	}
	chat, err := store.GetLastChat()
	if err != nil {
		logger.Warn("failed to load last chat", "error", err)
		newChat := newChatEntry()
		activeChatName = newChat.Name
		chatMap[newChat.Name] = newChat
		return defaultStarter
	}
	history, err := chat.ToHistory()
	if err != nil {
		logger.Warn("failed to parse last chat", "error", err, "name", chat.Name)
		newChat := newChatEntry()
		activeChatName = newChat.Name
		chatMap[newChat.Name] = newChat
		return defaultStarter
	}
	activeChatName = chat.Name
	chatMap[chat.Name] = chat
	return history
}

func newChatEntry() *models.Chat {
	id, err := store.ChatGetMaxID()
	if err != nil {
		logger.Warn("failed to get max chat id", "error", err)
	}
	chat := &models.Chat{
		ID:        id + 1,
		Agent:     cfg.AssistantRole,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	chat.Name = fmt.Sprintf("%d_%s", chat.ID, cfg.AssistantRole)
	return chat
}

func startNewChat() {
	newChat := newChatEntry()
	activeChatName = newChat.Name
	chatMap[newChat.Name] = newChat
	chatBody.Messages = defaultStarter
	textView.SetText(chatToText(chatBody.Messages, cfg.ShowSys))
	updateStatusLine()
}

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"workchat/models"
)

// turnMu serializes API turns; one turn runs to completion before the next
// user input is accepted.
var turnMu sync.Mutex

type completionReq struct {
	Msg string `json:"msg"`
	// optional role override for the injected message, defaults to the
	// configured user role
	Role string `json:"role,omitempty"`
}

type completionResp struct {
	Response string                `json:"response"`
	Stats    *models.ResponseStats `json:"stats,omitempty"`
}

func ListenToRequests(port string) {
	mux := http.NewServeMux()
	server := &http.Server{
		Addr:        "localhost:" + port,
		Handler:     mux,
		ReadTimeout: time.Second * 5,
	}
	mux.HandleFunc("GET /ping", pingHandler)
	mux.HandleFunc("GET /model", modelHandler)
	mux.HandleFunc("POST /completion", completionHandler)
	fmt.Println("Listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil {
		panic(err)
	}
}

func pingHandler(w http.ResponseWriter, req *http.Request) {
	if _, err := w.Write([]byte("pong")); err != nil {
		logger.Error("server ping", "error", err)
	}
}

func completionHandler(w http.ResponseWriter, req *http.Request) {
	cr := completionReq{}
	if err := json.NewDecoder(req.Body).Decode(&cr); err != nil || cr.Msg == "" {
		http.Error(w, "expected json body with non-empty msg", http.StatusBadRequest)
		return
	}
	turnMu.Lock()
	defer turnMu.Unlock()
	if err := chatRound(&models.ChatRoundReq{UserMsg: cr.Msg, Role: cr.Role}); err != nil {
		logger.Error("api turn failed", "error", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	last := chatBody.Messages[len(chatBody.Messages)-1]
	payload, err := json.Marshal(completionResp{
		Response: last.Content,
		Stats:    lastRespStats,
	})
	if err != nil {
		logger.Error("completion handler", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(payload); err != nil {
		logger.Error("completion handler", "error", err)
	}
}

func modelHandler(w http.ResponseWriter, req *http.Request) {
	payload, err := json.Marshal(map[string]string{"model": chatBody.Model})
	if err != nil {
		logger.Error("model handler", "error", err)
		return
	}
	if _, err := w.Write(payload); err != nil {
		logger.Error("model handler", "error", err)
	}
}

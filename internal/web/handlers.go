package web

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"time"

	"go.uber.org/zap"

	"career-chat/internal/career"
	"career-chat/internal/chat"
)

const (
	statusSuccess = "success"
	statusError   = "error"

	maxBodyBytes = 256 << 10
)

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
	Status   string `json:"status"`
}

type historyMessage struct {
	User      string `json:"user"`
	AI        string `json:"ai"`
	Timestamp string `json:"timestamp"`
}

type historyResponse struct {
	Messages []historyMessage `json:"messages"`
}

type careerResponse struct {
	Suggestions string `json:"suggestions,omitempty"`
	Error       string `json:"error,omitempty"`
	Status      string `json:"status"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	id, err := s.ensureSession(w, r)
	if err != nil {
		s.log.Error("failed to issue session cookie", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if s.opts.EagerPriming {
		if err := s.chat.Prime(r.Context(), id); err != nil {
			// the first chat message will retry
			s.log.Warn("eager priming failed", zap.String("session", id), zap.Error(err))
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, struct{ Title string }{s.opts.Title}); err != nil {
		s.log.Error("failed to render index", zap.Error(err))
	}
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// an unreadable or oversized body carries no message
		req.Message = ""
	}

	id, err := s.ensureSession(w, r)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, chatResponse{Error: err.Error(), Status: statusError})
		return
	}

	reply, err := s.chat.Send(r.Context(), id, req.Message)
	if err != nil {
		var ve *chat.ValidationError
		if errors.As(err, &ve) {
			writeJSON(w, http.StatusBadRequest, chatResponse{Error: ve.Msg, Status: statusError})
			return
		}
		s.log.Error("chat failed", zap.String("session", id), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, chatResponse{Error: err.Error(), Status: statusError})
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Response: reply, Status: statusSuccess})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	resp := historyResponse{Messages: []historyMessage{}}
	if id, ok := s.sessionID(r); ok {
		for _, e := range s.chat.History(id) {
			resp.Messages = append(resp.Messages, historyMessage{
				User:      e.User,
				AI:        e.AI,
				Timestamp: e.Timestamp.Format(time.RFC3339Nano),
			})
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if id, ok := s.sessionID(r); ok {
		s.chat.Clear(id)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleCareer(w http.ResponseWriter, r *http.Request) {
	var p career.Profile
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			writeJSON(w, http.StatusBadRequest, careerResponse{Error: "Invalid JSON body", Status: statusError})
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeJSON(w, http.StatusBadRequest, careerResponse{Error: "Invalid form body", Status: statusError})
			return
		}
		p = career.Profile{
			Name:      r.PostForm.Get("name"),
			Interests: r.PostForm.Get("interests"),
			Skills:    r.PostForm.Get("skills"),
			Education: r.PostForm.Get("education"),
		}
	}

	out, err := s.counselor.Suggest(r.Context(), p)
	if err != nil {
		if errors.Is(err, career.ErrEmptyProfile) {
			writeJSON(w, http.StatusBadRequest, careerResponse{Error: "Please fill in at least one field", Status: statusError})
			return
		}
		s.log.Error("career suggestions failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, careerResponse{Error: err.Error(), Status: statusError})
		return
	}
	writeJSON(w, http.StatusOK, careerResponse{Suggestions: out, Status: statusSuccess})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.chat.Sessions(),
		"uptime":   time.Since(s.startTime).Round(time.Second).String(),
	})
}

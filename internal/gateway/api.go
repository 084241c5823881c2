package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lhdbsbz/applydesk/internal/apply"
	"github.com/lhdbsbz/applydesk/internal/chat"
)

const apiPrefix = "/api"

// resumeField is the name of the file input on the application form.
const resumeField = "resume"

func (s *Server) registerAPIRoutes(engine *gin.Engine) {
	api := engine.Group(apiPrefix)
	api.POST("/views", s.ginCreateView)

	view := api.Group("/views/:id", s.viewMiddleware())
	view.GET("", s.ginViewSnapshot)
	view.DELETE("", s.ginRemoveView)
	view.GET("/chat", s.ginChatHistory)
	view.POST("/chat", s.ginChatSend)
	view.POST("/apply", s.ginApply)
}

func (s *Server) viewMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := s.Views.Get(c.Param("id"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown view"})
			return
		}
		c.Set("view", v)
		c.Next()
	}
}

func viewOf(c *gin.Context) *View {
	return c.MustGet("view").(*View)
}

func (s *Server) ginCreateView(c *gin.Context) {
	v := s.Views.Create()
	c.JSON(http.StatusCreated, v.Snapshot())
}

func (s *Server) ginViewSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, viewOf(c).Snapshot())
}

// ginRemoveView is called when the page is left; the view and its
// transcript are gone afterwards.
func (s *Server) ginRemoveView(c *gin.Context) {
	s.Views.Remove(viewOf(c).ID)
	c.Status(http.StatusNoContent)
}

func (s *Server) ginChatHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"messages": viewOf(c).Chat.Log().Messages()})
}

// chatSendResult is the reply to a chat request. Sent is false when the
// input was blank or the key was not Enter.
type chatSendResult struct {
	Sent     bool          `json:"sent"`
	Cleared  bool          `json:"cleared"`
	Question *chat.Message `json:"question,omitempty"`
	Answer   *chat.Message `json:"answer,omitempty"`
}

func (s *Server) ginChatSend(c *gin.Context) {
	var body ChatSendParams
	if err := c.ShouldBindJSON(&body); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	c.JSON(http.StatusOK, s.runChatSend(c.Request.Context(), viewOf(c), body))
}

func (s *Server) handleChatFrame(ctx context.Context, v *View, f Frame) (any, error) {
	var p ChatSendParams
	if err := json.Unmarshal(f.Params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if f.Method == MethodChatKey && p.Key == "" {
		return nil, errors.New("key required")
	}
	if f.Method == MethodChatSend {
		p.Key = ""
	}
	return s.runChatSend(ctx, v, p), nil
}

// runChatSend is shared by the HTTP API and the socket.
func (s *Server) runChatSend(ctx context.Context, v *View, p ChatSendParams) chatSendResult {
	in := &chat.TextInput{Text: p.Text}
	var (
		turn chat.Turn
		sent bool
	)
	if p.Key != "" {
		turn, sent = v.Chat.KeyDown(ctx, p.Key, in)
	} else {
		turn, sent = v.Chat.Send(ctx, in)
	}
	res := chatSendResult{Sent: sent, Cleared: in.Cleared}
	if sent {
		res.Question = &turn.Question
		res.Answer = &turn.Answer
	}
	return res
}

// uploadForm adapts one multipart request to apply.Form.
type uploadForm struct {
	fields apply.Fields
	file   *multipart.FileHeader
	reset  bool
}

func (f *uploadForm) Fields() apply.Fields { return f.fields }

func (f *uploadForm) File() (apply.Attachment, bool) {
	if f.file == nil {
		return nil, false
	}
	return apply.FromMultipart(f.file), true
}

func (f *uploadForm) Reset() {
	f.fields = apply.Fields{}
	f.file = nil
	f.reset = true
}

type applyResult struct {
	apply.Result
	Reset         bool `json:"reset"`
	SubmitEnabled bool `json:"submitEnabled"`
}

func (s *Server) ginApply(c *gin.Context) {
	v := viewOf(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.Config.Gateway.MaxUploadBytes)

	form := &uploadForm{}
	if err := c.ShouldBind(&form.fields); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large"})
			return
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}
	if fh, err := c.FormFile(resumeField); err == nil {
		form.file = fh
	} else if !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}

	res := s.Apply.Submit(c.Request.Context(), form, v, v)
	c.JSON(http.StatusOK, applyResult{
		Result:        res,
		Reset:         form.reset,
		SubmitEnabled: v.SubmitEnabled(),
	})
}

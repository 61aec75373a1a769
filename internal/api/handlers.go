package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/youruser/idcardapp/internal/bot"
	"github.com/youruser/idcardapp/internal/card"
	imagepkg "github.com/youruser/idcardapp/internal/image"
	"github.com/youruser/idcardapp/internal/telegram"
)

const maxDocumentSize = 20 << 20

// Processor runs card generation for the webhook and the upload endpoint.
type Processor interface {
	Dispatch(chatID int64, fileID string)
	Generate(ctx context.Context, pdf []byte) ([]byte, error)
}

// Chat is the part of the bot client the handlers talk to directly.
type Chat interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SetWebhook(ctx context.Context, url string) error
}

// Handler serves the bot and card endpoints. BaseURL is the public URL of
// this server; WebhookPath is appended to it when registering the webhook.
type Handler struct {
	Processor Processor
	Chat      Chat
	BaseURL   string
}

// health
func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// webhookHandler receives Telegram updates. PDFs are processed in the
// background; the reply only acknowledges the update.
func (h *Handler) webhookHandler(c *gin.Context) {
	var upd telegram.Update
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}
	msg := upd.Message
	if msg == nil || msg.Chat.ID == 0 {
		c.JSON(http.StatusOK, gin.H{"status": "error", "message": "No chat ID found"})
		return
	}
	ctx := c.Request.Context()
	chatID := msg.Chat.ID

	switch {
	case msg.Document != nil:
		if msg.Document.MimeType == "application/pdf" {
			h.Processor.Dispatch(chatID, msg.Document.FileID)
			c.JSON(http.StatusOK, gin.H{"status": "processing"})
			return
		}
		h.reply(ctx, chatID, bot.MsgNotPDF)
	case strings.HasPrefix(msg.Text, "/start"):
		h.reply(ctx, chatID, bot.MsgWelcome)
	case msg.Text != "":
		h.reply(ctx, chatID, bot.MsgPDFOnly)
	}
	c.JSON(http.StatusOK, gin.H{"status": "handled"})
}

func (h *Handler) reply(ctx context.Context, chatID int64, text string) {
	if err := h.Chat.SendMessage(ctx, chatID, text); err != nil {
		log.Warn().Err(err).Str("component", "API").Int64("chat_id", chatID).Msg("reply failed")
	}
}

// setWebhookHandler registers BaseURL + WebhookPath with Telegram. Call it
// once after deploying.
func (h *Handler) setWebhookHandler(c *gin.Context) {
	if err := h.Chat.SetWebhook(c.Request.Context(), webhookURL(h.BaseURL)); err != nil {
		log.Error().Err(err).Str("component", "API").Msg("set webhook")
		c.JSON(http.StatusOK, gin.H{"status": "webhook setup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "webhook set"})
}

func webhookURL(base string) string {
	return strings.TrimRight(base, "/") + WebhookPath
}

// cardHandler composes a card from a PDF uploaded as the multipart field
// "document" and returns the PNG.
func (h *Handler) cardHandler(c *gin.Context) {
	fh, err := c.FormFile("document")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing document"})
		return
	}
	if fh.Size > maxDocumentSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "document too large"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()
	pdf, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, err := h.Processor.Generate(c.Request.Context(), pdf)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", out)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, card.ErrDocument):
		return http.StatusBadRequest
	case errors.Is(err, card.ErrExtraction), errors.Is(err, card.ErrRegionOutOfBounds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// qr endpoint returns a PNG of a QR for "text" query param
func qrHandler(c *gin.Context) {
	text := c.Query("text")
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing text"})
		return
	}
	size := 400
	if v, err := strconv.Atoi(c.Query("size")); err == nil && v > 0 && v <= 2000 {
		size = v
	}
	q, err := imagepkg.GenerateQRImage(text, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, q, imaging.PNG); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

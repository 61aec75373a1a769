// Package bot runs the Telegram document flow: download a PDF, check it,
// compose the card and send it back with progress messages.
package bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/youruser/idcardapp/internal/util"
)

const (
	MsgDownloading = "📥 Downloading your PDF..."
	MsgValid       = "✅ Valid single-page PDF detected. Generating ID card..."
	MsgProcessing  = "🔄 Processing PDF and generating ID card..."
	MsgSending     = "📤 Sending your ID card..."
	MsgComplete    = "✅ ID card generation complete!"
	MsgWelcome     = "Welcome! Send me a PDF file and I'll convert it to an image."
	MsgPDFOnly     = "I only process PDF files. Please send a PDF document."
	MsgNotPDF      = "Please send a PDF file."

	PhotoName = "id_card.png"
)

func msgPageCount(n int) string {
	return fmt.Sprintf("❌ Invalid PDF: This PDF has %d pages.\n\n"+
		"Please send a **single-page PDF** document. "+
		"Multi-page documents are not supported.", n)
}

func msgError(err error) string {
	return "❌ Error generating ID card: " + err.Error()
}

// Messenger is the chat side of the flow.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendPhoto(ctx context.Context, chatID int64, image []byte, filename string) error
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)
}

// CardComposer turns a PDF into an encoded card image.
type CardComposer interface {
	Compose(ctx context.Context, pdf []byte, scratchDir string) ([]byte, error)
}

type Service struct {
	chat        Messenger
	composer    CardComposer
	scratchRoot string
	timeout     time.Duration

	wg sync.WaitGroup
}

func NewService(chat Messenger, composer CardComposer, scratchRoot string, timeout time.Duration) *Service {
	if scratchRoot == "" {
		scratchRoot = os.TempDir()
	}
	return &Service{chat: chat, composer: composer, scratchRoot: scratchRoot, timeout: timeout}
}

// Dispatch processes a document in the background. Wait blocks until every
// dispatched job has finished.
func (s *Service) Dispatch(chatID int64, fileID string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.ProcessDocument(context.Background(), chatID, fileID); err != nil {
			log.Error().Err(err).Str("component", "BOT").Int64("chat_id", chatID).Msg("document failed")
		}
	}()
}

func (s *Service) Wait() {
	s.wg.Wait()
}

// ProcessDocument runs the whole flow for one document. Failures are reported
// to the chat and returned.
func (s *Service) ProcessDocument(ctx context.Context, chatID int64, fileID string) error {
	logger := log.With().Str("component", "BOT").Int64("chat_id", chatID).Logger()

	s.say(ctx, chatID, MsgDownloading)
	pdf, err := s.chat.DownloadFile(ctx, fileID)
	if err != nil {
		s.say(ctx, chatID, msgError(err))
		return err
	}

	if err := CheckSinglePage(pdf); err != nil {
		if n, ok := pageCountOf(err); ok {
			s.say(ctx, chatID, msgPageCount(n))
		} else {
			s.say(ctx, chatID, msgError(err))
		}
		return err
	}
	s.say(ctx, chatID, MsgValid)

	s.say(ctx, chatID, MsgProcessing)
	started := time.Now()
	img, err := s.compose(ctx, pdf)
	if err != nil {
		s.say(ctx, chatID, msgError(err))
		return err
	}
	logger.Info().Dur("took", time.Since(started)).Int("bytes", len(img)).Msg("card composed")

	s.say(ctx, chatID, MsgSending)
	if err := s.chat.SendPhoto(ctx, chatID, img, PhotoName); err != nil {
		s.say(ctx, chatID, msgError(err))
		return err
	}
	s.say(ctx, chatID, MsgComplete)
	return nil
}

// Generate checks and composes a PDF without any chat round trips.
func (s *Service) Generate(ctx context.Context, pdf []byte) ([]byte, error) {
	if err := CheckSinglePage(pdf); err != nil {
		return nil, err
	}
	return s.compose(ctx, pdf)
}

// compose runs the composer in a fresh scratch directory that is removed
// afterwards.
func (s *Service) compose(ctx context.Context, pdf []byte) ([]byte, error) {
	dir := filepath.Join(s.scratchRoot, "idcard-"+uuid.NewString())
	if err := util.EnsureDir(dir); err != nil {
		return nil, err
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Warn().Err(err).Str("component", "BOT").Str("dir", dir).Msg("scratch cleanup failed")
		}
	}()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.composer.Compose(ctx, pdf, dir)
}

// say sends a progress message; failures are only logged.
func (s *Service) say(ctx context.Context, chatID int64, text string) {
	if err := s.chat.SendMessage(ctx, chatID, text); err != nil {
		log.Warn().Err(err).Str("component", "BOT").Int64("chat_id", chatID).Msg("send message failed")
	}
}

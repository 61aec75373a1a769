// Package telegram is a small Bot API client covering what the ID card bot
// sends and receives.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

// APIError is a Bot API reply with ok=false or a non-2xx status.
type APIError struct {
	Method      string
	Status      int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Status, e.Description)
}

// Temporary reports statuses worth retrying.
func (e *APIError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

type Client struct {
	baseURL    string
	fileURL    string
	http       *http.Client
	MaxRetries uint64
}

// New returns a client for token against apiBase, e.g. https://api.telegram.org.
func New(apiBase, token string) *Client {
	apiBase = strings.TrimRight(apiBase, "/")
	return &Client{
		baseURL:    apiBase + "/bot" + token,
		fileURL:    apiBase + "/file/bot" + token,
		http:       &http.Client{Timeout: 60 * time.Second},
		MaxRetries: 3,
	}
}

// SendMessage sends a plain text message.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	body, err := json.Marshal(map[string]any{"chat_id": chatID, "text": text})
	if err != nil {
		return err
	}
	return c.call(ctx, "sendMessage", func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sendMessage", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, nil)
}

// SendPhoto uploads an image as a photo message.
func (c *Client) SendPhoto(ctx context.Context, chatID int64, image []byte, filename string) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return err
	}
	part, err := w.CreateFormFile("photo", filename)
	if err != nil {
		return err
	}
	if _, err := part.Write(image); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	body := buf.Bytes()

	return c.call(ctx, "sendPhoto", func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sendPhoto", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", w.FormDataContentType())
		return req, nil
	}, nil)
}

// GetFile resolves a file id to its download path.
func (c *Client) GetFile(ctx context.Context, fileID string) (*File, error) {
	var f File
	err := c.call(ctx, "getFile", func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet,
			c.baseURL+"/getFile?file_id="+url.QueryEscape(fileID), nil)
	}, &f)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// DownloadFile fetches the content of a file sent to the bot.
func (c *Client) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	f, err := c.GetFile(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", fileID, err)
	}

	var data []byte
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.fileURL+"/"+f.FilePath, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			apiErr := &APIError{Method: "file", Status: resp.StatusCode, Description: resp.Status}
			if apiErr.Temporary() {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}
		data, err = io.ReadAll(resp.Body)
		return err
	}
	if err := backoff.Retry(op, c.backoff(ctx)); err != nil {
		return nil, fmt.Errorf("download %s: %w", fileID, err)
	}
	return data, nil
}

// SetWebhook points the bot at url.
func (c *Client) SetWebhook(ctx context.Context, webhookURL string) error {
	body, err := json.Marshal(map[string]string{"url": webhookURL})
	if err != nil {
		return err
	}
	return c.call(ctx, "setWebhook", func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/setWebhook", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, nil)
}

// GetMe checks the token and returns the bot account.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var u User
	err := c.call(ctx, "getMe", func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/getMe", nil)
	}, &u)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) backoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	return backoff.WithContext(backoff.WithMaxRetries(b, c.MaxRetries), ctx)
}

// call performs one Bot API method, retrying transport errors and temporary
// API errors. newReq is called once per attempt. When out is not nil the
// result field is decoded into it.
func (c *Client) call(ctx context.Context, method string, newReq func() (*http.Request, error), out any) error {
	op := func() error {
		req, err := newReq()
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		var r response
		if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
			if resp.StatusCode >= 500 {
				return &APIError{Method: method, Status: resp.StatusCode, Description: resp.Status}
			}
			return backoff.Permanent(fmt.Errorf("telegram %s: decode reply: %w", method, err))
		}
		if !r.OK || resp.StatusCode/100 != 2 {
			apiErr := &APIError{Method: method, Status: resp.StatusCode, Description: r.Description}
			if apiErr.Temporary() {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}
		if out != nil && len(r.Result) > 0 {
			if err := json.Unmarshal(r.Result, out); err != nil {
				return backoff.Permanent(fmt.Errorf("telegram %s: decode result: %w", method, err))
			}
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		log.Warn().Err(err).Str("component", "TELEGRAM").Str("method", method).
			Dur("retry_in", wait).Msg("bot api call failed")
	}
	err := backoff.RetryNotify(op, c.backoff(ctx), notify)
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	return err
}

package service

import (
	"context"

	"github.com/polis-labs/chronicler/internal/model"
)

// Transport is the messaging capability the bot is built on. The wire
// format of the underlying messenger is deliberately outside the core;
// implementations live in internal/transport.
type Transport interface {
	// SendMessage delivers text to the owner, optionally with buttons
	SendMessage(ctx context.Context, owner int64, text string, kb model.Keyboard) error

	// SendDocument delivers a file artifact with a caption
	SendDocument(ctx context.Context, owner int64, path string, caption string, kb model.Keyboard) error

	// DownloadFile materializes an uploaded file reference into destDir
	// and returns the local path
	DownloadFile(ctx context.Context, fileID string, destDir string) (string, error)
}

package media

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// AttachmentCap is the platform's per-post media attachment limit.
const AttachmentCap = 4

// UploadClient is the slice of the platform client the uploader needs.
type UploadClient interface {
	UploadMedia(ctx context.Context, data []byte, filename string) (string, error)
}

// ItemResult records the outcome of one batch item. A failed item never
// aborts the batch; the error is kept here as the skip reason.
type ItemResult struct {
	// Source is the original URL or local path.
	Source string

	// Filename is the scratch filename, when the fetch got that far.
	Filename string

	// MediaID is the platform media id on success.
	MediaID string

	// Err is the skip reason on failure.
	Err error
}

// OK reports whether the item uploaded successfully.
func (r ItemResult) OK() bool { return r.Err == nil }

// Uploader orchestrates fetch → edit → upload → cleanup for media batches.
type Uploader struct {
	store  *Store
	client UploadClient
	cap    int
	logger *slog.Logger
}

// NewUploader creates an uploader over the given store and client.
func NewUploader(store *Store, client UploadClient, logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Uploader{
		store:  store,
		client: client,
		cap:    AttachmentCap,
		logger: logger.With("component", "media-upload"),
	}
}

// Process runs the batch: each item in order is fetched into the scratch
// directory, optionally edited, uploaded, and enqueued for deletion. Any
// failure in that chain skips the item and the loop proceeds. The loop stops
// once the attachment cap is reached. When nothing uploads, ErrNoUploads is
// returned. The first return value is the comma-joined media ids ready to
// use as the post attachment parameter.
func (u *Uploader) Process(ctx context.Context, items []string, editFn func(path string) error) (string, []ItemResult, error) {
	batch := uuid.New().String()[:8]
	results := make([]ItemResult, 0, len(items))

	var (
		succeeded []string
		mediaIDs  []string
	)

	for _, item := range items {
		if len(mediaIDs) >= u.cap {
			break
		}
		res := u.processOne(ctx, item, editFn)
		results = append(results, res)
		if res.OK() {
			succeeded = append(succeeded, res.Source)
			mediaIDs = append(mediaIDs, res.MediaID)
		} else {
			u.logger.Debug("media item skipped", "batch", batch, "source", item, "reason", res.Err)
		}
	}

	if len(mediaIDs) == 0 {
		return "", results, fmt.Errorf("batch %s: %w", batch, ErrNoUploads)
	}

	// Final clamp; the loop already enforces the cap.
	if len(succeeded) > u.cap {
		succeeded = succeeded[:u.cap]
	}
	if len(mediaIDs) > u.cap {
		mediaIDs = mediaIDs[:u.cap]
	}

	u.logger.Info("media batch uploaded",
		"batch", batch,
		"uploaded", strings.Join(succeeded, ", "),
		"count", len(mediaIDs),
	)
	return strings.Join(mediaIDs, ","), results, nil
}

// processOne runs the per-item chain. Each step's failure is captured in the
// returned result rather than propagated.
func (u *Uploader) processOne(ctx context.Context, item string, editFn func(path string) error) ItemResult {
	res := ItemResult{Source: item}

	name, err := u.store.Fetch(ctx, item)
	if err != nil {
		res.Err = err
		return res
	}
	res.Filename = name

	if err := u.store.Edit([]string{name}, editFn); err != nil {
		res.Err = err
		u.store.EnqueueDelete(name)
		return res
	}

	data, err := u.store.Read(name)
	if err != nil {
		res.Err = err
		u.store.EnqueueDelete(name)
		return res
	}

	id, err := u.client.UploadMedia(ctx, data, name)
	if err != nil {
		res.Err = err
		u.store.EnqueueDelete(name)
		return res
	}
	res.MediaID = id

	u.store.EnqueueDelete(name)
	return res
}

package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"

	botpkg "github.com/Nachtalb/WhatSongIsThatBot/bot"
	logpkg "github.com/Nachtalb/WhatSongIsThatBot/bot/logger"
	"github.com/Nachtalb/WhatSongIsThatBot/bot/recognize"
	"github.com/Nachtalb/WhatSongIsThatBot/bot/resolve"
	"github.com/Nachtalb/WhatSongIsThatBot/bot/telegram"
	"github.com/Nachtalb/WhatSongIsThatBot/bot/worker"
)

// RecognizeHandler runs the recognition workflow for inbound audio,
// voice, video and video-note messages. Exactly one of Single and
// Stream is set, selecting the backend strategy.
type RecognizeHandler struct {
	CacheDir          string
	MaxFileSize       int64
	MaxPasses         int
	EarlyExitInterval int
	Resolver          *resolve.Resolver
	Single            recognize.Service
	Stream            recognize.StreamService
	Pool              *worker.Pool
	RateLimiter       *telegram.RateLimiter
	Logger            *logpkg.Logger
}

// HandleAudio processes audio and voice messages.
func (h *RecognizeHandler) HandleAudio(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil {
		return
	}
	message := update.Message

	var fileID, fileName string
	switch {
	case message.Audio != nil:
		fileID, fileName = message.Audio.FileID, message.Audio.FileName
	case message.Voice != nil:
		fileID, fileName = message.Voice.FileID, "voice.ogg"
	default:
		return
	}
	h.dispatch(ctx, b, message, fileID, fileName, false)
}

// HandleVideo processes video and video-note messages. The audio
// stream is extracted before recognition.
func (h *RecognizeHandler) HandleVideo(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil {
		return
	}
	message := update.Message

	var fileID, fileName string
	switch {
	case message.Video != nil:
		fileID, fileName = message.Video.FileID, message.Video.FileName
	case message.VideoNote != nil:
		fileID, fileName = message.VideoNote.FileID, "videonote.mp4"
	default:
		return
	}
	h.dispatch(ctx, b, message, fileID, fileName, true)
}

func (h *RecognizeHandler) dispatch(ctx context.Context, b *bot.Bot, message *models.Message, fileID, fileName string, isVideo bool) {
	initial, err := sendText(ctx, h.RateLimiter, b, message.Chat.ID, message.ID, msgSearching)
	if err != nil || initial == nil {
		if h.Logger != nil {
			h.Logger.Error("initial reply failed", "error", err)
		}
		return
	}

	run := func() {
		h.run(ctx, b, message.Chat.ID, initial.ID, fileID, fileName, isVideo)
	}
	if h.Pool == nil || !h.Pool.Submit(run) {
		run()
	}
}

func (h *RecognizeHandler) run(ctx context.Context, b *bot.Bot, chatID int64, statusMsgID int, fileID, fileName string, isVideo bool) {
	notifier := &telegram.Notifier{
		Editor:      b,
		RateLimiter: h.RateLimiter,
		ChatID:      chatID,
		MessageID:   statusMsgID,
		Logger:      h.Logger,
	}
	defer notifier.CancelPending()

	song, err := h.recognizeWorkflow(ctx, b, fileID, fileName, isVideo, notifier)
	if err != nil && !errors.Is(err, botpkg.ErrAttachmentTooLarge) && h.Logger != nil {
		h.Logger.Error("recognition workflow failed", "error", err)
	}

	text, markup := finalReply(song, err, h.maxFileSize())
	if err := notifier.NotifyFinal(ctx, text, markup); err != nil {
		if h.Logger != nil {
			h.Logger.Error("final update delivery failed", "error", err)
		}
	}
}

// finalReply maps a workflow outcome to the terminal message. A song
// without providers is never surfaced as a match.
func finalReply(song *botpkg.Song, err error, maxFileSize int64) (string, models.ReplyMarkup) {
	switch {
	case errors.Is(err, botpkg.ErrAttachmentTooLarge):
		return fmt.Sprintf(msgTooBigTempl, humanize.Bytes(uint64(maxFileSize))), nil
	case err != nil:
		return msgWentWrong, nil
	case song.Valid():
		return finalText(song), songMarkup(song)
	default:
		return msgNoMatch, nil
	}
}

// recognizeWorkflow acquires the audio, invokes the configured backend
// strategy and returns the final guess. All temporary files are
// released on every exit path.
func (h *RecognizeHandler) recognizeWorkflow(ctx context.Context, b *bot.Bot, fileID, fileName string, isVideo bool, notifier *telegram.Notifier) (*botpkg.Song, error) {
	cacheDir := h.CacheDir
	if cacheDir == "" {
		cacheDir = "./cache"
	}
	ensureDir(cacheDir)

	fileInfo, err := b.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "too big") {
			return nil, botpkg.ErrAttachmentTooLarge
		}
		return nil, fmt.Errorf("get file: %w", err)
	}
	if fileInfo.FileSize > h.maxFileSize() {
		return nil, botpkg.ErrAttachmentTooLarge
	}

	path := filepath.Join(cacheDir, "recognize-"+uuid.NewString()+fileExt(fileName, fileInfo.FilePath))
	if err := downloadFile(ctx, b.FileDownloadLink(fileInfo), path); err != nil {
		return nil, fmt.Errorf("download attachment: %w", err)
	}
	defer os.Remove(path)

	if isVideo {
		audioPath, err := extractAudio(ctx, path, cacheDir)
		if err != nil {
			return nil, fmt.Errorf("extract audio: %w", err)
		}
		defer os.Remove(audioPath)
		path = audioPath
	}

	if h.Stream != nil {
		return h.runStream(ctx, path, notifier)
	}
	if h.Single == nil {
		return nil, botpkg.ErrBackendUnavailable
	}

	payload, err := h.Single.Recognize(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("fingerprinting backend: %w", err)
	}
	return h.Resolver.Resolve(ctx, payload)
}

func (h *RecognizeHandler) runStream(ctx context.Context, audioPath string, notifier *telegram.Notifier) (*botpkg.Song, error) {
	audioData, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}

	stabilizer := &recognize.Stabilizer{
		Resolve: h.Resolver.Resolve,
		Notify: func(song *botpkg.Song) {
			notifier.NotifyProgress(ctx, progressText(song), songMarkup(song))
		},
		EarlyExitInterval: h.EarlyExitInterval,
		Logger:            h.Logger,
	}
	stream := h.Stream.RecognizeStream(audioData, h.maxPasses())
	return stabilizer.Run(ctx, stream)
}

func (h *RecognizeHandler) maxFileSize() int64 {
	if h.MaxFileSize > 0 {
		return h.MaxFileSize
	}
	return 20 * 1000 * 1000
}

func (h *RecognizeHandler) maxPasses() int {
	if h.MaxPasses > 0 {
		return h.MaxPasses
	}
	return recognize.DefaultMaxPasses
}

func fileExt(fileName, filePath string) string {
	if ext := filepath.Ext(fileName); ext != "" {
		return ext
	}
	if ext := filepath.Ext(filePath); ext != "" {
		return ext
	}
	return ".ogg"
}

func downloadFile(ctx context.Context, url, path string) error {
	client := &http.Client{Timeout: 30 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(path)
		return err
	}
	return out.Close()
}

// extractAudio converts a video file to an audio-only ogg stream.
func extractAudio(ctx context.Context, videoPath, cacheDir string) (string, error) {
	audioPath := filepath.Join(cacheDir, "audio-"+uuid.NewString()+".ogg")

	ffmpegCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ffmpegCtx, "ffmpeg", "-i", videoPath, "-vn", "-acodec", "libvorbis", audioPath)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		os.Remove(audioPath)
		return "", fmt.Errorf("ffmpeg failed: %w, stderr: %s", err, stderr.String())
	}
	return audioPath, nil
}

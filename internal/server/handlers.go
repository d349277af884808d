package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unipodhq/unipod/internal/pipeline"
	"github.com/unipodhq/unipod/internal/script"
	"github.com/unipodhq/unipod/internal/store"
)

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type podcastResponse struct {
	ID           string `json:"id"`
	Playlist     string `json:"playlist"`
	Title        string `json:"title,omitempty"`
	Script       string `json:"script"`
	AudioAddress string `json:"audio_address"`
	CreatedAt    string `json:"created_at"`
}

func toPodcastResponse(p *store.Podcast) podcastResponse {
	return podcastResponse{
		ID:           p.ID,
		Playlist:     p.Playlist,
		Title:        p.Title,
		Script:       p.Script,
		AudioAddress: p.AudioAddress,
		CreatedAt:    p.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// handleRegister creates a new account.
func (s *Server) handleRegister(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	u, err := s.users.Create(c.Request.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, store.ErrDuplicateEmail):
		c.JSON(http.StatusConflict, gin.H{"error": "email is already registered"})
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusCreated, userResponse{ID: u.ID, Email: u.Email})
	}
}

// handleLogin verifies credentials and issues a session token.
func (s *Server) handleLogin(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	u, err := s.users.CheckCredentials(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}
		slog.Error("login failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	token, expiresAt, err := s.auth.issue(u)
	if err != nil {
		slog.Error("token issue failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	})
}

// handleCreatePodcast accepts a multipart upload (pdf, playlist, optional
// title and per-host voice samples), runs the generation pipeline, persists
// the resulting record, and returns it.
func (s *Server) handleCreatePodcast(c *gin.Context) {
	userID := c.GetString(userIDKey)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)

	pdfHeader, err := c.FormFile("pdf")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a pdf file upload is required"})
		return
	}
	document, err := readUpload(pdfHeader)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("read pdf upload: %v", err)})
		return
	}

	playlist := c.PostForm("playlist")
	if playlist == "" {
		playlist = "default"
	}
	title := c.PostForm("title")

	voiceSamples, err := s.readVoiceUploads(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.runner.Run(c.Request.Context(), pipeline.Request{
		Document:     document,
		OwnerID:      userID,
		Playlist:     playlist,
		VoiceSamples: voiceSamples,
	})
	if err != nil {
		writeRunError(c, err)
		return
	}

	p := &store.Podcast{
		OwnerID:      userID,
		Playlist:     playlist,
		Title:        title,
		Script:       result.Script,
		AudioAddress: result.AudioAddress,
	}
	if err := s.podcasts.CreatePodcast(c.Request.Context(), p); err != nil {
		// The episode is already published; losing the record is still a
		// server-side failure the client must hear about.
		slog.Error("podcast record insert failed", "owner", userID, "audio_address", result.AudioAddress, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "episode was published but its record could not be saved"})
		return
	}

	c.JSON(http.StatusCreated, toPodcastResponse(p))
}

// handleListPodcasts returns the caller's podcasts, newest first.
func (s *Server) handleListPodcasts(c *gin.Context) {
	userID := c.GetString(userIDKey)
	list, err := s.podcasts.ListByOwner(c.Request.Context(), userID)
	if err != nil {
		slog.Error("podcast listing failed", "owner", userID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "listing failed"})
		return
	}

	out := make([]podcastResponse, 0, len(list))
	for i := range list {
		out = append(out, toPodcastResponse(&list[i]))
	}
	c.JSON(http.StatusOK, gin.H{"podcasts": out})
}

// handleGetPodcast returns one of the caller's podcasts by ID. Records owned
// by other users are reported as not found.
func (s *Server) handleGetPodcast(c *gin.Context) {
	userID := c.GetString(userIDKey)
	p, err := s.podcasts.GetPodcast(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "podcast not found"})
			return
		}
		slog.Error("podcast lookup failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if p.OwnerID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "podcast not found"})
		return
	}
	c.JSON(http.StatusOK, toPodcastResponse(p))
}

// readVoiceUploads collects the optional voice_host1/voice_host2 sample
// files keyed by the configured host names.
func (s *Server) readVoiceUploads(c *gin.Context) (map[string][]byte, error) {
	samples := make(map[string][]byte)
	for i, field := range []string{"voice_host1", "voice_host2"} {
		header, err := c.FormFile(field)
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) {
				continue
			}
			return nil, fmt.Errorf("read %s upload: %w", field, err)
		}
		data, err := readUpload(header)
		if err != nil {
			return nil, fmt.Errorf("read %s upload: %w", field, err)
		}
		samples[s.cfg.Hosts[i]] = data
	}
	if len(samples) == 0 {
		return nil, nil
	}
	return samples, nil
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// writeRunError maps pipeline failures to HTTP responses: an empty generated
// script is the client's document's fault (422), anything stage-tagged is an
// upstream collaborator failure (502).
func writeRunError(c *gin.Context, err error) {
	if errors.Is(err, script.ErrEmptyScript) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "the generated script contained no dialogue lines",
		})
		return
	}

	var stageErr *pipeline.StageError
	if errors.As(err, &stageErr) {
		slog.Error("pipeline run failed", "stage", stageErr.Stage, "err", stageErr.Err)
		c.JSON(http.StatusBadGateway, gin.H{
			"stage": string(stageErr.Stage),
			"error": stageErr.Err.Error(),
		})
		return
	}

	slog.Error("pipeline run failed", "err", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "podcast generation failed"})
}

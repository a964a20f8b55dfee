package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"inferd/internal/pipeline"
	"inferd/internal/store"
	"inferd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Analyze(ctx context.Context, image []byte, contextText string) (types.AnalysisResult, error)
	Chat(ctx context.Context, sessionID, message string) (types.TurnResult, types.SessionInfo, error)
	Conversation(sessionID string) types.ConversationSnapshot
	Generate(ctx context.Context, prompt string, maxLength int) (*types.GenerationResult, *pipeline.Rejection, error)
	Status() types.StatusResponse
	Ready() bool
}

// serverBaseCtx is a process-level context that can be canceled on shutdown.
// Defaults to Background if not set.
var serverBaseCtx = context.Background()

// SetBaseContext sets the process-level base context used by handlers.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		serverBaseCtx = context.Background()
		return
	}
	serverBaseCtx = ctx
}

// joinContexts returns a context that is canceled when either a or b is done.
// The returned cancel func must be called to release the goroutine when the
// handler ends.
func joinContexts(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-a.Done():
			cancel()
		case <-b.Done():
			cancel()
		}
	}()
	return ctx, cancel
}

// NewMux builds the HTTP handler. recorder may be nil; persistence is then
// skipped and result ids are left empty.
func NewMux(svc Service, recorder store.Store) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	r.Use(MetricsMiddleware)

	r.Post("/v1/analyze", func(w http.ResponseWriter, r *http.Request) {
		handleAnalyze(svc, recorder, w, r)
	})
	r.Post("/v1/chat", func(w http.ResponseWriter, r *http.Request) {
		handleChat(svc, recorder, w, r)
	})
	r.Get("/v1/conversations/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
		handleConversation(svc, recorder, w, r)
	})
	r.Post("/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		handleGenerate(svc, recorder, w, r)
	})
	r.Get("/v1/results", func(w http.ResponseWriter, r *http.Request) {
		handleResults(recorder, w, r)
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

// handleAnalyze accepts a multipart form with an `image` file and an
// optional `context_text` field.
func handleAnalyze(svc Service, recorder store.Store, w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()
	image, err := io.ReadAll(file)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "failed to read image")
		return
	}
	contextText := r.FormValue("context_text")

	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	start := time.Now()
	analysis, err := svc.Analyze(ctx, image, contextText)
	if err != nil {
		if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			return
		}
		status, msg := mapServiceError(err)
		writeJSONError(w, status, msg)
		logRequest(r, "analyze", status, time.Since(start), err)
		return
	}

	resp := types.AnalyzeResponse{Analysis: analysis, Status: "success"}
	if recorder != nil {
		confidence := 0.0
		if len(analysis.Predictions) > 0 {
			confidence = analysis.Predictions[0].Score
		}
		input, _ := json.Marshal(map[string]string{
			"image_name": header.Filename,
			"context":    contextText,
		})
		result, _ := json.Marshal(analysis)
		id, err := recorder.CreateResult(r.Context(), store.Result{
			Type:           "vision",
			Name:           "multimodal_analyzer",
			Input:          string(input),
			Result:         string(result),
			Confidence:     confidence,
			ProcessingTime: analysis.ProcessingTime,
		})
		if err != nil {
			logRequest(r, "analyze persist", http.StatusOK, time.Since(start), err)
		} else {
			resp.ID = id
		}
	}
	writeJSON(w, http.StatusOK, resp)
	logRequest(r, "analyze", http.StatusOK, time.Since(start), nil)
}

func handleChat(svc Service, recorder store.Store, w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		writeJSONError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSONError(w, http.StatusBadRequest, "message is required")
		return
	}

	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	start := time.Now()
	result, info, err := svc.Chat(ctx, req.SessionID, req.Message)
	if err != nil {
		if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			return
		}
		status, msg := mapServiceError(err)
		writeJSONError(w, status, msg)
		logRequest(r, "chat", status, time.Since(start), err)
		return
	}

	resp := types.ChatResponse{
		Response:    result.Response,
		Sentiment:   result.Sentiment,
		Moderation:  result.Moderation,
		SessionInfo: info,
	}
	if recorder != nil {
		resp.MessageID = persistTurn(r.Context(), recorder, req, result, info, svc)
	}
	writeJSON(w, http.StatusOK, resp)
	logRequest(r, "chat", http.StatusOK, time.Since(start), nil)
}

// persistTurn records the exchange and the session bookkeeping. Persistence
// failures never fail the turn; they only drop the message id.
func persistTurn(ctx context.Context, recorder store.Store, req types.ChatRequest, result types.TurnResult, info types.SessionInfo, svc Service) string {
	if err := recorder.EnsureSession(ctx, req.SessionID); err != nil {
		return ""
	}
	id, err := recorder.AppendMessage(ctx, req.SessionID, req.Message, result.Response, result.Sentiment.Score)
	if err != nil {
		return ""
	}
	summary := ""
	if info.HasSummary {
		summary = svc.Conversation(req.SessionID).Summary
	}
	_ = recorder.UpdateSession(ctx, req.SessionID, info.TurnCount, summary)
	resultJSON, _ := json.Marshal(result)
	_, _ = recorder.CreateResult(ctx, store.Result{
		Type:           "chat",
		Name:           "conversation_engine",
		Input:          req.Message,
		Result:         string(resultJSON),
		Confidence:     result.Sentiment.Score,
		ProcessingTime: result.ProcessingTime,
	})
	return id
}

func handleConversation(svc Service, recorder store.Store, w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	snap := svc.Conversation(sessionID)
	if snap.TurnCount == 0 && recorder != nil {
		// The engine starts empty after a restart; fall back to the store.
		if fromStore, ok := conversationFromStore(r.Context(), recorder, sessionID); ok {
			snap = fromStore
		}
	}
	writeJSON(w, http.StatusOK, snap)
}

func conversationFromStore(ctx context.Context, recorder store.Store, sessionID string) (types.ConversationSnapshot, bool) {
	sess, err := recorder.GetSession(ctx, sessionID)
	if err != nil || sess == nil {
		return types.ConversationSnapshot{}, false
	}
	msgs, err := recorder.ListMessages(ctx, sessionID)
	if err != nil {
		return types.ConversationSnapshot{}, false
	}
	turns := make([]types.Turn, len(msgs))
	for i, m := range msgs {
		turns[i] = types.Turn{
			Message:        m.Message,
			Response:       m.Response,
			SentimentScore: m.SentimentScore,
			Timestamp:      time.Unix(m.CreatedAt, 0),
		}
	}
	return types.ConversationSnapshot{
		SessionID: sessionID,
		Turns:     turns,
		TurnCount: sess.TurnCount,
		Summary:   sess.Summary,
	}, true
}

func handleGenerate(svc Service, recorder store.Store, w http.ResponseWriter, r *http.Request) {
	var req types.GenerateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeJSONError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	start := time.Now()
	result, rejection, err := svc.Generate(ctx, req.Prompt, req.MaxLength)
	if err != nil {
		if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			return
		}
		status, msg := mapServiceError(err)
		writeJSONError(w, status, msg)
		logRequest(r, "generate", status, time.Since(start), err)
		return
	}
	if rejection != nil {
		writeJSON(w, http.StatusBadRequest, types.RejectionResponse{
			Error:         rejection.Reason,
			ToxicityScore: rejection.Score,
		})
		logRequest(r, "generate", http.StatusBadRequest, time.Since(start), nil)
		return
	}

	resp := types.GenerateResponse{
		GeneratedContent: result.GeneratedText,
		Sentiment:        result.Sentiment,
		SafetyScore:      result.SafetyScore,
		Status:           "success",
	}
	if recorder != nil {
		resultJSON, _ := json.Marshal(result)
		id, err := recorder.CreateResult(r.Context(), store.Result{
			Type:           "text",
			Name:           "content_generator",
			Input:          req.Prompt,
			Result:         string(resultJSON),
			Confidence:     result.SafetyScore,
			ProcessingTime: result.ProcessingTime,
		})
		if err == nil {
			resp.ID = id
		}
	}
	writeJSON(w, http.StatusOK, resp)
	logRequest(r, "generate", http.StatusOK, time.Since(start), nil)
}

func handleResults(recorder store.Store, w http.ResponseWriter, r *http.Request) {
	if recorder == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "result store not configured")
		return
	}
	typeFilter := r.URL.Query().Get("type")
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSONError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	results, err := recorder.QueryResults(r.Context(), typeFilter, limit)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to query results")
		return
	}
	if results == nil {
		results = []types.ResultRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// decodeJSON enforces content type and body size, decoding into v.
// A false return means the error response has been written.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// If exceeded size, MaxBytesReader may cause an error; still return
		// 400 to avoid size leak details
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && status == http.StatusOK {
		// Headers already sent; nothing to recover.
		return
	}
}

package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/docqa-backend/internal/domain/documents"
	"github.com/yungbote/docqa-backend/internal/platform/ctxutil"
	"github.com/yungbote/docqa-backend/internal/platform/logger"
	"github.com/yungbote/docqa-backend/internal/platform/vectorstore"
)

const (
	payloadDocumentIDKey = "document_id"
	payloadChunkIDKey    = "chunk_id"
	payloadPageKey       = "page"
	payloadIndexKey      = "index"
	payloadContentKey    = "content"
	maxErrorBodyBytes    = 1024
)

var pointIDNamespaceUUID = uuid.MustParse("6a8f3c1e-4b7d-4f0a-9d52-2e81c0b7a913")

type VectorStore struct {
	log      *logger.Logger
	cfg      Config
	baseURL  string
	distance string
	http     *http.Client
}

var _ vectorstore.Store = (*VectorStore)(nil)

type qdrantEnvelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
	Time   float64         `json:"time"`
}

type qdrantSearchResultItem struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

func NewVectorStore(ctx context.Context, log *logger.Logger, cfg Config) (*VectorStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if err := ValidateConfig(cfg, true); err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	s := &VectorStore{
		log:     log.With("service", "QdrantVectorStore"),
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		http:    &http.Client{Timeout: timeout},
	}

	if err := s.verifyReady(ctx); err != nil {
		return nil, err
	}

	log.Info(
		"Qdrant vector store selected",
		"provider", "qdrant",
		"url", s.baseURL,
		"collection", cfg.Collection,
		"vector_dim", cfg.VectorDim,
		"distance", s.distance,
	)
	return s, nil
}

// Put upserts every chunk in a single request, which Qdrant applies as one operation.
func (s *VectorStore) Put(ctx context.Context, documentID uuid.UUID, chunks []documents.Chunk) error {
	const op = "put"
	points, err := s.buildPoints(op, documentID, chunks)
	if err != nil {
		return err
	}
	if len(points) == 0 {
		return nil
	}
	return s.doJSON(ctx, op, http.MethodPut, s.collectionPath("/points?wait=true"), map[string]any{"points": points}, nil)
}

// Replace runs delete-by-document and upsert as one batch update.
func (s *VectorStore) Replace(ctx context.Context, documentID uuid.UUID, chunks []documents.Chunk) error {
	const op = "replace"
	points, err := s.buildPoints(op, documentID, chunks)
	if err != nil {
		return err
	}
	ops := []any{
		map[string]any{"delete": map[string]any{"filter": documentFilter(documentID)}},
	}
	if len(points) > 0 {
		ops = append(ops, map[string]any{"upsert": map[string]any{"points": points}})
	}
	return s.doJSON(ctx, op, http.MethodPost, s.collectionPath("/points/batch?wait=true"), map[string]any{"operations": ops}, nil)
}

func (s *VectorStore) Query(ctx context.Context, documentID uuid.UUID, vector []float32, k int) ([]documents.ScoredChunk, error) {
	const op = "query"
	if err := vectorstore.ValidateQuery(vector, k); err != nil {
		return nil, err
	}
	if s.cfg.VectorDim > 0 && len(vector) != s.cfg.VectorDim {
		return nil, opErr(
			op,
			OperationErrorValidation,
			fmt.Sprintf("query vector dimension mismatch: expected=%d got=%d", s.cfg.VectorDim, len(vector)),
			nil,
		)
	}

	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
		"with_vector":  false,
		"filter":       documentFilter(documentID),
	}
	var rawResults []qdrantSearchResultItem
	if err := s.doJSON(ctx, op, http.MethodPost, s.collectionPath("/points/search"), req, &rawResults); err != nil {
		return nil, err
	}

	out := make([]documents.ScoredChunk, 0, len(rawResults))
	for _, item := range rawResults {
		ch, ok := chunkFromPayload(documentID, item)
		if !ok {
			s.log.Warn("qdrant point missing chunk payload", "document_id", documentID.String(), "point_id", decodePointID(item.ID))
			continue
		}
		out = append(out, documents.ScoredChunk{Chunk: ch, Distance: s.scoreToDistance(item.Score)})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Distance == out[j].Distance {
			return out[i].Chunk.Index < out[j].Chunk.Index
		}
		return out[i].Distance < out[j].Distance
	})
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (s *VectorStore) DeleteDocument(ctx context.Context, documentID uuid.UUID) error {
	const op = "delete"
	req := map[string]any{"filter": documentFilter(documentID)}
	return s.doJSON(ctx, op, http.MethodPost, s.collectionPath("/points/delete?wait=true"), req, nil)
}

func (s *VectorStore) buildPoints(op string, documentID uuid.UUID, chunks []documents.Chunk) ([]map[string]any, error) {
	if _, err := vectorstore.ValidateChunks(documentID, chunks); err != nil {
		return nil, err
	}
	points := make([]map[string]any, 0, len(chunks))
	for _, ch := range chunks {
		if s.cfg.VectorDim > 0 && len(ch.Embedding) != s.cfg.VectorDim {
			return nil, opErr(
				op,
				OperationErrorValidation,
				fmt.Sprintf(
					"chunk %d dimension mismatch: expected=%d got=%d",
					ch.Index,
					s.cfg.VectorDim,
					len(ch.Embedding),
				),
				nil,
			)
		}
		chunkID := ch.ID
		if chunkID == uuid.Nil {
			chunkID = uuid.NewSHA1(documentID, []byte(fmt.Sprintf("chunk-%d", ch.Index)))
		}
		points = append(points, map[string]any{
			"id":     pointID(documentID, chunkID),
			"vector": ch.Embedding,
			"payload": map[string]any{
				payloadDocumentIDKey: documentID.String(),
				payloadChunkIDKey:    chunkID.String(),
				payloadPageKey:       ch.Page,
				payloadIndexKey:      ch.Index,
				payloadContentKey:    ch.Content,
			},
		})
	}
	return points, nil
}

func (s *VectorStore) verifyReady(ctx context.Context) error {
	const op = "bootstrap_verify"

	readyReq, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodGet, s.baseURL+"/readyz", nil)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build ready request failed", err)
	}
	s.authorize(readyReq)
	readyResp, err := s.http.Do(readyReq)
	if err != nil {
		return classifyHTTPCallError(op, "qdrant ready check failed", err)
	}
	_ = readyResp.Body.Close()
	if readyResp.StatusCode < 200 || readyResp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: readyResp.StatusCode,
			Message:    fmt.Sprintf("qdrant ready check returned status=%d", readyResp.StatusCode),
		}
	}

	var result struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	}
	err = s.doJSON(ctx, op, http.MethodGet, s.collectionPath(""), nil, &result)
	var opErrTyped *OperationError
	if errors.As(err, &opErrTyped) && opErrTyped.StatusCode == http.StatusNotFound && s.cfg.CreateCollection {
		return s.createCollection(ctx)
	}
	if err != nil {
		return err
	}

	size := result.Config.Params.Vectors.Size
	if size != 0 && size != s.cfg.VectorDim {
		return &OperationError{
			Code:      OperationErrorValidation,
			Operation: op,
			Message: fmt.Sprintf(
				"qdrant collection %q vector size mismatch: expected=%d actual=%d",
				s.cfg.Collection,
				s.cfg.VectorDim,
				size,
			),
		}
	}
	s.distance = strings.TrimSpace(result.Config.Params.Vectors.Distance)
	return nil
}

func (s *VectorStore) createCollection(ctx context.Context) error {
	const op = "bootstrap_create"
	req := map[string]any{
		"vectors": map[string]any{
			"size":     s.cfg.VectorDim,
			"distance": "Cosine",
		},
	}
	if err := s.doJSON(ctx, op, http.MethodPut, s.collectionPath(""), req, nil); err != nil {
		return err
	}
	idx := map[string]any{"field_name": payloadDocumentIDKey, "field_schema": "keyword"}
	if err := s.doJSON(ctx, op, http.MethodPut, s.collectionPath("/index?wait=true"), idx, nil); err != nil {
		return err
	}
	s.distance = "Cosine"
	s.log.Info("qdrant collection created", "collection", s.cfg.Collection, "vector_dim", s.cfg.VectorDim)
	return nil
}

func (s *VectorStore) doJSON(ctx context.Context, op, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return opErr(op, OperationErrorEncodeFailed, "encode request failed", err)
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), method, s.baseURL+path, body)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")
	s.authorize(req)

	resp, err := s.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, "qdrant request failed", err)
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return opErr(op, OperationErrorDecodeFailed, "read response failed", readErr)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("qdrant http status=%d body=%q", resp.StatusCode, truncateBody(raw)),
		}
	}

	var envelope qdrantEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant envelope failed", err)
	}
	if statusErr := parseEnvelopeStatus(envelope.Status); statusErr != "" {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    statusErr,
		}
	}

	if out == nil {
		return nil
	}
	if len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant result failed", err)
	}
	return nil
}

func (s *VectorStore) authorize(req *http.Request) {
	if s.cfg.APIKey != "" {
		req.Header.Set("api-key", s.cfg.APIKey)
	}
}

func classifyHTTPCallError(op, message string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	return opErr(op, OperationErrorTransportFailed, message, err)
}

func parseEnvelopeStatus(raw json.RawMessage) string {
	status := strings.TrimSpace(string(raw))
	if status == "" || status == "null" {
		return ""
	}

	var statusString string
	if err := json.Unmarshal(raw, &statusString); err == nil {
		switch strings.ToLower(statusString) {
		case "ok", "acknowledged", "completed":
			return ""
		}
		return fmt.Sprintf("qdrant status=%q", statusString)
	}

	var statusObject struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &statusObject); err == nil {
		if strings.TrimSpace(statusObject.Error) != "" {
			return strings.TrimSpace(statusObject.Error)
		}
	}

	return fmt.Sprintf("qdrant status=%s", status)
}

func truncateBody(raw []byte) string {
	if len(raw) <= maxErrorBodyBytes {
		return string(raw)
	}
	return string(raw[:maxErrorBodyBytes]) + "..."
}

func documentFilter(documentID uuid.UUID) map[string]any {
	return map[string]any{
		"must": []any{
			map[string]any{
				"key":   payloadDocumentIDKey,
				"match": map[string]any{"value": documentID.String()},
			},
		},
	}
}

func pointID(documentID, chunkID uuid.UUID) string {
	return uuid.NewSHA1(pointIDNamespaceUUID, []byte(documentID.String()+"|"+chunkID.String())).String()
}

func (s *VectorStore) collectionPath(suffix string) string {
	path := "/collections/" + s.cfg.Collection
	if strings.TrimSpace(suffix) == "" {
		return path
	}
	return path + suffix
}

func chunkFromPayload(documentID uuid.UUID, item qdrantSearchResultItem) (documents.Chunk, bool) {
	content, ok := item.Payload[payloadContentKey].(string)
	if !ok {
		return documents.Chunk{}, false
	}
	page, ok := payloadInt(item.Payload[payloadPageKey])
	if !ok {
		return documents.Chunk{}, false
	}
	index, _ := payloadInt(item.Payload[payloadIndexKey])
	ch := documents.Chunk{
		DocumentID: documentID,
		Page:       page,
		Index:      index,
		Content:    content,
	}
	if raw, ok := item.Payload[payloadChunkIDKey].(string); ok {
		if id, err := uuid.Parse(raw); err == nil {
			ch.ID = id
		}
	}
	return ch, true
}

func payloadInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	default:
		return 0, false
	}
}

func decodePointID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var idString string
	if err := json.Unmarshal(raw, &idString); err == nil {
		return strings.TrimSpace(idString)
	}
	var idNumber int64
	if err := json.Unmarshal(raw, &idNumber); err == nil {
		return fmt.Sprintf("%d", idNumber)
	}
	return strings.TrimSpace(string(raw))
}

// scoreToDistance maps a Qdrant score onto ascending distance.
// Cosine and dot scores grow with similarity; euclid and manhattan are already distances.
func (s *VectorStore) scoreToDistance(score float64) float64 {
	switch strings.ToLower(strings.TrimSpace(s.distance)) {
	case "euclid", "manhattan":
		if score < 0 {
			return -score
		}
		return score
	case "dot":
		return -score
	default:
		return 1 - score
	}
}

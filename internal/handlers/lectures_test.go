package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/mock/gomock"

	"lecture-qa/internal/content"
	"lecture-qa/internal/indexer"
	"lecture-qa/internal/service/mocks"
)

func TestLectureHandler_Ingest(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		result     indexer.Result
		wantStatus int
		wantStored *int
	}{
		{
			name:       "stored",
			result:     indexer.Result{TranscriptPath: "transcript_20240101_090000.txt", ChunkIDs: []string{"1", "2", "3"}},
			wantStatus: http.StatusOK,
		},
		{name: "transcription failed", err: indexer.ErrTranscription, wantStatus: http.StatusBadGateway},
		{name: "empty transcript", err: indexer.ErrEmptyContent, wantStatus: http.StatusUnprocessableEntity},
		{
			name:       "partial",
			err:        &indexer.PartialIngestionError{Stored: 2, Total: 5, Err: content.ErrStoreWrite},
			wantStatus: http.StatusInternalServerError,
			wantStored: intPtr(2),
		},
		{name: "store failure", err: content.ErrStoreWrite, wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			svc := mocks.NewMockQAService(ctrl)

			var spooled string
			svc.EXPECT().
				IngestLecture(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, path string) (indexer.Result, error) {
					spooled = path
					data, err := os.ReadFile(path)
					if err != nil || string(data) != "ID3audio" {
						t.Errorf("spooled upload = %q, %v", data, err)
					}
					if filepath.Ext(path) != ".mp3" {
						t.Errorf("spooled ext = %q, want .mp3", filepath.Ext(path))
					}
					return tt.result, tt.err
				})

			w := httptest.NewRecorder()
			NewLectureHandler(svc).Ingest(w, multipartRequest(t, "/api/v1/lectures", "lecture.mp3", []byte("ID3audio"), nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if _, err := os.Stat(spooled); !errors.Is(err, os.ErrNotExist) {
				t.Errorf("spooled upload %s not removed", spooled)
			}

			if tt.err == nil {
				resp := decodeBody[IngestResponse](t, w)
				if resp.Stored != 3 || len(resp.ChunkIDs) != 3 {
					t.Errorf("unexpected response %+v", resp)
				}
				return
			}
			if tt.wantStored != nil {
				resp := decodeBody[ErrorResponse](t, w)
				if resp.Stored == nil || *resp.Stored != *tt.wantStored || resp.Total == nil || *resp.Total != 5 {
					t.Errorf("ErrorResponse = %+v, want stored %d of 5", resp, *tt.wantStored)
				}
			}
		})
	}
}

func TestLectureHandler_Ingest_MissingFile(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockQAService(ctrl)

	w := httptest.NewRecorder()
	NewLectureHandler(svc).Ingest(w, httptest.NewRequest(http.MethodPost, "/api/v1/lectures", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestLectureHandler_Reindex(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockQAService(ctrl)
	svc.EXPECT().ReindexTranscripts(gomock.Any()).Return(4, nil)

	w := httptest.NewRecorder()
	NewLectureHandler(svc).Reindex(w, httptest.NewRequest(http.MethodPost, "/api/v1/transcripts/reindex", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if resp := decodeBody[ReindexResponse](t, w); resp.Transcripts != 4 {
		t.Errorf("Transcripts = %d, want 4", resp.Transcripts)
	}
}

func intPtr(v int) *int { return &v }

package vectorstore

import (
	"context"
	"testing"

	"github.com/qdrant/go-client/qdrant"
)

func TestNewQdrantStore(t *testing.T) {
	tests := []struct {
		name    string
		urlStr  string
		wantErr bool
	}{
		{
			name:   "valid URL with default port",
			urlStr: "http://localhost:6333",
		},
		{
			name:   "valid URL with custom port",
			urlStr: "http://qdrant.internal:9000",
		},
		{
			name:   "URL without port",
			urlStr: "http://localhost",
		},
		{
			name:    "invalid URL",
			urlStr:  "://invalid",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewQdrantStore(tt.urlStr)
			if tt.wantErr {
				if err == nil {
					t.Errorf("NewQdrantStore(%q) expected error, got nil", tt.urlStr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewQdrantStore(%q) error = %v", tt.urlStr, err)
			}
			if store == nil {
				t.Fatal("NewQdrantStore() returned nil store")
			}
		})
	}
}

func TestQdrantStore_Upsert_EmptyPoints(t *testing.T) {
	// Empty input returns before the client is touched.
	store := &QdrantStore{}

	if err := store.Upsert(context.Background(), "chunks", nil); err != nil {
		t.Errorf("Upsert() with no points should be a no-op, got: %v", err)
	}
}

func TestQdrantStore_Search_InvalidK(t *testing.T) {
	store := &QdrantStore{}

	if _, err := store.Search(context.Background(), "chunks", []float32{1, 2}, 0, nil); err == nil {
		t.Error("Search() with k=0 expected error, got nil")
	}
	if _, err := store.Search(context.Background(), "chunks", []float32{1, 2}, -3, nil); err == nil {
		t.Error("Search() with negative k expected error, got nil")
	}
}

func TestConvertPayloadToMap(t *testing.T) {
	payload := map[string]*qdrant.Value{
		"source":     {Kind: &qdrant.Value_StringValue{StringValue: "paper.txt"}},
		"chunk_id":   {Kind: &qdrant.Value_IntegerValue{IntegerValue: 7}},
		"score":      {Kind: &qdrant.Value_DoubleValue{DoubleValue: 0.5}},
		"routed":     {Kind: &qdrant.Value_BoolValue{BoolValue: true}},
		"nil_value":  nil,
		"empty_kind": {},
	}

	result := convertPayloadToMap(payload)

	if result["source"] != "paper.txt" {
		t.Errorf("source = %v, want paper.txt", result["source"])
	}
	if result["chunk_id"] != int64(7) {
		t.Errorf("chunk_id = %v, want int64(7)", result["chunk_id"])
	}
	if result["score"] != 0.5 {
		t.Errorf("score = %v, want 0.5", result["score"])
	}
	if result["routed"] != true {
		t.Errorf("routed = %v, want true", result["routed"])
	}
	if _, present := result["nil_value"]; present {
		t.Error("nil payload values should be dropped")
	}
	if result["empty_kind"] != nil {
		t.Errorf("empty_kind = %v, want nil", result["empty_kind"])
	}
}

func TestConvertPayloadToMap_Nil(t *testing.T) {
	result := convertPayloadToMap(nil)
	if result == nil {
		t.Fatal("convertPayloadToMap(nil) returned nil, want empty map")
	}
	if len(result) != 0 {
		t.Errorf("convertPayloadToMap(nil) has %d entries, want 0", len(result))
	}
}

func TestConvertValue_List(t *testing.T) {
	value := &qdrant.Value{
		Kind: &qdrant.Value_ListValue{
			ListValue: &qdrant.ListValue{
				Values: []*qdrant.Value{
					{Kind: &qdrant.Value_StringValue{StringValue: "a"}},
					{Kind: &qdrant.Value_IntegerValue{IntegerValue: 2}},
				},
			},
		},
	}

	got, ok := convertValue(value).([]any)
	if !ok {
		t.Fatalf("convertValue() = %T, want []any", convertValue(value))
	}
	if len(got) != 2 || got[0] != "a" || got[1] != int64(2) {
		t.Errorf("convertValue() = %v, want [a 2]", got)
	}
}

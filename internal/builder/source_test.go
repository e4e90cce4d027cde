package builder

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/golang/mock/gomock"
)

func TestRPCSource_TipHeight(t *testing.T) {
	tests := []struct {
		name       string
		count      int64
		countErr   error
		want       uint32
		wantErrSub string
	}{
		{
			name:  "maps block count",
			count: 775_000,
			want:  775_000,
		},
		{
			name:       "rejects negative count",
			count:      -1,
			wantErrSub: "block count",
		},
		{
			name:       "rejects count past uint32",
			count:      math.MaxUint32 + 1,
			wantErrSub: "block count",
		},
		{
			name:       "wraps client error",
			countErr:   errors.New("connection refused"),
			wantErrSub: "get block count",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			client := NewMockNodeClient(ctrl)
			client.EXPECT().GetBlockCount().Return(tt.count, tt.countErr)

			source := NewRPCSource(client, 0)
			got, err := source.TipHeight(context.Background())
			if tt.wantErrSub != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErrSub) {
					t.Fatalf("TipHeight() error = %v, want substring %q", err, tt.wantErrSub)
				}
				return
			}
			if err != nil {
				t.Fatalf("TipHeight() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("TipHeight() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRPCSource_Header(t *testing.T) {
	hash := &chainhash.Hash{0xab}
	header := &wire.BlockHeader{Version: 2, Nonce: 7}

	tests := []struct {
		name       string
		prepare    func(client *MockNodeClient)
		wantErrSub string
	}{
		{
			name: "plumbs hash to header",
			prepare: func(client *MockNodeClient) {
				client.EXPECT().GetBlockHash(int64(42)).Return(hash, nil)
				client.EXPECT().GetBlockHeader(hash).Return(header, nil)
			},
		},
		{
			name: "wraps hash lookup error",
			prepare: func(client *MockNodeClient) {
				client.EXPECT().GetBlockHash(int64(42)).Return(nil, errors.New("pruned"))
			},
			wantErrSub: "get block hash 42",
		},
		{
			name: "wraps header lookup error",
			prepare: func(client *MockNodeClient) {
				client.EXPECT().GetBlockHash(int64(42)).Return(hash, nil)
				client.EXPECT().GetBlockHeader(hash).Return(nil, errors.New("not found"))
			},
			wantErrSub: "get block header",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			client := NewMockNodeClient(ctrl)
			tt.prepare(client)

			source := NewRPCSource(client, 1000)
			got, err := source.Header(context.Background(), 42)
			if tt.wantErrSub != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErrSub) {
					t.Fatalf("Header() error = %v, want substring %q", err, tt.wantErrSub)
				}
				return
			}
			if err != nil {
				t.Fatalf("Header() error = %v", err)
			}
			if got != header {
				t.Fatalf("Header() = %v, want %v", got, header)
			}
		})
	}
}

func TestRPCSource_ContextCanceled(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := NewMockNodeClient(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := NewRPCSource(client, 0)
	if _, err := source.TipHeight(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("TipHeight() error = %v, want context.Canceled", err)
	}
	if _, err := source.Header(ctx, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("Header() error = %v, want context.Canceled", err)
	}
}

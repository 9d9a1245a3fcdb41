package blob

import (
	"errors"
	"strings"
	"testing"

	"github.com/toastx/shredr-fun/internal/domain"
)

func TestCreateRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		blob    string
		wantErr bool
		errMsg  string
	}{
		{name: "typical blob", blob: strings.Repeat("x", 200)},
		{name: "at max size", blob: strings.Repeat("a", MaxSize)},
		{name: "empty", blob: "", wantErr: true, errMsg: "encryptedBlob is required"},
		{
			name:    "one byte over",
			blob:    strings.Repeat("a", MaxSize+1),
			wantErr: true,
			errMsg:  "Blob too large: 2049 bytes (max 2048 bytes)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CreateRequest{EncryptedBlob: tt.blob}.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.errMsg)
			}
		})
	}
}

func TestListQueryNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   ListQuery
		want ListQuery
	}{
		{"default query", DefaultListQuery(), ListQuery{Limit: 100}},
		{"zero limit", ListQuery{Limit: 0}, ListQuery{Limit: 1}},
		{"limit at max", ListQuery{Limit: MaxLimit}, ListQuery{Limit: 100}},
		{"in range", ListQuery{Limit: 20, Offset: 40}, ListQuery{Limit: 20, Offset: 40}},
		{"limit too large", ListQuery{Limit: 1000}, ListQuery{Limit: 100}},
		{"negative limit", ListQuery{Limit: -5}, ListQuery{Limit: 1}},
		{"negative offset", ListQuery{Limit: 10, Offset: -3}, ListQuery{Limit: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Normalize(); got != tt.want {
				t.Errorf("Normalize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

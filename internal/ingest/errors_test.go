package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil", nil, ""},
		{"bad input", newError(KindBadInput, nil, "bad delimiter"), "REQ001"},
		{"too large", newError(KindPayloadTooLarge, nil, "too big"), "FILE001"},
		{"parse", newError(KindParseFailure, errors.New("bare quote"), "parse"), "FILE002"},
		{"empty", newError(KindEmptyData, nil, "empty"), "FILE005"},
		{"unsupported", newError(KindUnsupportedFormat, nil, "pdf"), "FILE006"},
		{"fetch", newError(KindFetchFailure, nil, "404"), "NET001"},
		{"busy", newError(KindBusy, nil, "busy"), "UPL002"},
		{"wrapped kind", fmt.Errorf("handler: %w", newError(KindEmptyData, nil, "empty")), "FILE005"},
		{"plain error", errors.New("boom"), "ERR000"},
		{"cancelled", context.Canceled, "UPL005"},
		{"fetch timeout keeps fetch code", newError(KindFetchFailure, context.DeadlineExceeded, "timeout"), "NET001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapError(tt.err).Code; got != tt.wantCode {
				t.Errorf("MapError(%v).Code = %q, want %q", tt.err, got, tt.wantCode)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(errors.New("x")); got != KindInternal {
		t.Errorf("KindOf(plain) = %v, want internal", got)
	}
	wrapped := fmt.Errorf("outer: %w", newError(KindBusy, nil, "full"))
	if got := KindOf(wrapped); got != KindBusy {
		t.Errorf("KindOf(wrapped) = %v, want busy", got)
	}
}

func TestDetail(t *testing.T) {
	parse := newError(KindParseFailure, errors.New("record on line 2: wrong number of fields"), "parse delimited text")
	if got, want := Detail(parse), "parse delimited text: record on line 2: wrong number of fields"; got != want {
		t.Errorf("Detail(parse) = %q, want %q", got, want)
	}

	internal := fmt.Errorf("db password=hunter2 rejected")
	if got := Detail(internal); got != defaultMessage.Message {
		t.Errorf("Detail(internal) = %q, want generic message", got)
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := newError(KindFetchFailure, cause, "fetch")
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if got := err.Error(); got != "fetch: root cause" {
		t.Errorf("Error() = %q", got)
	}
}

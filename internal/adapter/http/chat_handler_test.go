package http

import (
	"context"
	"encoding/json"
	"errors"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	chatDomain "loan-amortization/internal/domain/chat"
	"loan-amortization/internal/testutil/replymock"
	"loan-amortization/internal/usecase/chat"
)

func doChat(t *testing.T, repo chatDomain.Repository, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := newEchoWithValidator()
	h := NewChatHandler(chat.NewUsecase(repo, nil), nil)

	req := httptest.NewRequest(stdhttp.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.Chat(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Chat error: %v", err)
	}
	return rec
}

func TestChat_KeywordReply(t *testing.T) {
	repo := replymock.Static(chatDomain.Reply{Keyword: "interest", Answer: "rates!", Priority: 1})
	rec := doChat(t, repo, `{"message":"Tell me about INTEREST"}`)
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got chat.ReplyDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if got.Response != "rates!" {
		t.Fatalf("response = %q, want %q", got.Response, "rates!")
	}
}

func TestChat_Fallback(t *testing.T) {
	rec := doChat(t, replymock.Static(chat.DefaultReplies()...), `{"message":"hello there"}`)
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &got)
	if got["response"] != chat.FallbackAnswer {
		t.Fatalf("response = %q, want fallback", got["response"])
	}
}

func TestChat_BadRequests(t *testing.T) {
	repo := replymock.Static()
	for name, tc := range map[string]struct {
		body string
		want string
	}{
		"broken json":   {`{"message":`, "invalid body"},
		"wrong type":    {`{"message":42}`, "invalid body"},
		"missing":       {`{}`, "validation failed"},
		"only spaces":   {`{"message":"   "}`, chatDomain.ErrEmptyMessage.Error()},
		"too long":      {`{"message":"` + strings.Repeat("a", 2001) + `"}`, "validation failed"},
	} {
		t.Run(name, func(t *testing.T) {
			rec := doChat(t, repo, tc.body)
			if rec.Code != stdhttp.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			var er ErrorResponse
			_ = json.Unmarshal(rec.Body.Bytes(), &er)
			if er.Error != tc.want {
				t.Fatalf("error = %q, want %q", er.Error, tc.want)
			}
		})
	}
}

func TestChat_RepositoryFailure(t *testing.T) {
	repo := &replymock.Repo{ListFn: func(context.Context) ([]chatDomain.Reply, error) {
		return nil, errors.New("db down")
	}}
	rec := doChat(t, repo, `{"message":"loan"}`)
	if rec.Code != stdhttp.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "db down") {
		t.Fatalf("internal error leaked: %s", rec.Body.String())
	}
}

package security

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/noah-isme/ad-checkout/internal/common"
)

// ErrBodyTooLarge is reported when a request payload exceeds the limit.
var ErrBodyTooLarge = errors.New("security: request body too large")

// BodyLimit enforces a maximum request payload size.
type BodyLimit struct {
	Max int64
}

// Middleware rejects requests exceeding the configured limit with HTTP 413.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	if b.Max <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body == nil || r.Body == http.NoBody {
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength > b.Max {
			b.reject(w)
			return
		}

		buf, err := io.ReadAll(io.LimitReader(r.Body, b.Max+1))
		_ = r.Body.Close()
		if err != nil {
			common.WriteError(w, common.BadRequest("invalid request body", err, nil))
			return
		}
		if int64(len(buf)) > b.Max {
			b.reject(w)
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(buf))
		r.ContentLength = int64(len(buf))
		next.ServeHTTP(w, r)
	})
}

func (b BodyLimit) reject(w http.ResponseWriter) {
	common.WriteError(w, common.NewAppError(
		common.CodeTooLarge,
		fmt.Sprintf("request body exceeds %d bytes", b.Max),
		http.StatusRequestEntityTooLarge,
		ErrBodyTooLarge,
	))
}

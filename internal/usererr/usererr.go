// Package usererr turns internal errors into short messages safe to show an
// end user. The raw error is only ever logged.
package usererr

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/neuronotes/pkg/types"
)

// Kind is a user-facing error class.
type Kind int

const (
	Generic Kind = iota
	Database
	Network
	Auth
	Permission
	NotFound
	InvalidInput
)

var kindNames = map[Kind]string{
	Generic:      "generic",
	Database:     "database",
	Network:      "network",
	Auth:         "auth",
	Permission:   "permission",
	NotFound:     "not-found",
	InvalidInput: "invalid-input",
}

func (k Kind) String() string { return kindNames[k] }

var messages = map[Kind]string{
	Generic:      "Something went wrong. Please try again.",
	Database:     "Your data could not be saved or loaded. Please try again.",
	Network:      "Could not reach the server. Check your connection and try again.",
	Auth:         "Your session has expired. Please sign in again.",
	Permission:   "You do not have permission to do that.",
	NotFound:     "The item could not be found. It may have been deleted.",
	InvalidInput: "Some of the information entered is not valid.",
}

// Message returns the user-facing text for k.
func Message(k Kind) string { return messages[k] }

// keywords are checked in order against the lowercased error text; the
// first hit wins.
var keywords = []struct {
	kind  Kind
	words []string
}{
	{Permission, []string{"permission denied", "forbidden", "not allowed", "row-level security", "insufficient privilege"}},
	{Auth, []string{"unauthorized", "authentication", "jwt", "token", "password", "not signed in"}},
	{Network, []string{"network", "connection refused", "connection reset", "timeout", "timed out", "unreachable", "no such host", "fetch failed", "offline"}},
	{Database, []string{"sql", "sqlite", "database", "constraint", "syntax error", "no such table", "no such column", "relation", "quota"}},
}

// Classify picks the Kind of err: sentinel errors first, then Postgres
// error codes, then keywords in the message.
func Classify(err error) Kind {
	if err == nil {
		return Generic
	}
	switch {
	case errors.Is(err, types.ErrNotFound):
		return NotFound
	case errors.Is(err, types.ErrInvalidID), errors.Is(err, types.ErrInvalidData),
		errors.Is(err, types.ErrInvalidType), errors.Is(err, types.ErrInvalidRepeat),
		errors.Is(err, types.ErrInvalidDate), errors.Is(err, types.ErrLastWorkspace),
		errors.Is(err, types.ErrTypeFixed):
		return InvalidInput
	case errors.Is(err, context.DeadlineExceeded):
		return Network
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return classifyCode(pgErr.Code)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return Network
	}

	text := strings.ToLower(err.Error())
	for _, k := range keywords {
		for _, w := range k.words {
			if strings.Contains(text, w) {
				return k.kind
			}
		}
	}
	return Generic
}

func classifyCode(code string) Kind {
	switch {
	case code == pgerrcode.InsufficientPrivilege:
		return Permission
	case pgerrcode.IsInvalidAuthorizationSpecification(code), code == pgerrcode.InvalidPassword:
		return Auth
	case pgerrcode.IsConnectionException(code), code == pgerrcode.CannotConnectNow, code == pgerrcode.AdminShutdown:
		return Network
	case pgerrcode.IsDataException(code):
		return InvalidInput
	}
	return Database
}

// Sanitize returns the message to show for err and logs the raw error.
func Sanitize(log zerolog.Logger, err error) string {
	if err == nil {
		return ""
	}
	k := Classify(err)
	log.Error().Err(err).Str("kind", k.String()).Msg("operation failed")
	return Message(k)
}

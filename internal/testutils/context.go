package testutils

import (
	"context"
	"io"
	"os"

	"github.com/gantry-dev/gantry/pkg/logger"
)

// CtxForTest returns a context.Context suitable for use in tests (i.e. with
// a logger attached).
func CtxForTest() context.Context {
	l := logger.NewLogger(logger.DebugLvl, os.Stdout)
	return logger.WithLogger(context.Background(), l)
}

// ForkedCtxForTest returns a test context with all log output copied to `w`.
func ForkedCtxForTest(w io.Writer) context.Context {
	l := logger.NewLogger(logger.DebugLvl, os.Stdout)
	ctx := logger.WithLogger(context.Background(), l)
	return logger.CtxWithForkedOutput(ctx, w)
}

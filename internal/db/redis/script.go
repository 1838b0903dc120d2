package redis

import (
	"context"

	"github.com/kailas-cloud/feedlock/internal/db"
)

// Eval runs a Lua script that returns an array of integers.
func (s *Store) Eval(ctx context.Context, script string, keys, args []string) ([]int64, error) {
	cmd := s.b().Eval().Script(script).Numkeys(int64(len(keys))).Key(keys...).Arg(args...).Build()
	vals, err := s.do(ctx, cmd).AsIntSlice()
	if err != nil {
		return nil, &db.Error{Op: db.OpEval, Err: err}
	}
	return vals, nil
}

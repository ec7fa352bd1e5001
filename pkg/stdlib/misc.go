package stdlib

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"sona/pkg/eval"
)

var uuidBridges = []registration{
	{"__native__uuid_v4", 0, uuidV4},
	{"__native__uuid_v7", 0, uuidV7},
	{"__native__uuid_valid", 1, uuidValid},
}

var humanizeBridges = []registration{
	{"__native__humanize_bytes", 1, humanizeBytes},
	{"__native__humanize_comma", 1, humanizeComma},
	{"__native__humanize_ordinal", 1, humanizeOrdinal},
	{"__native__humanize_ago", 1, humanizeAgo},
}

var timeBridges = []registration{
	{"__native__time_now_ms", 0, timeNowMs},
	{"__native__time_sleep_ms", 1, timeSleepMs},
	{"__native__time_format", -1, timeFormat},
}

func uuidV4(args ...eval.Object) (eval.Object, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}
	return eval.NewString(id.String()), nil
}

func uuidV7(args ...eval.Object) (eval.Object, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	return eval.NewString(id.String()), nil
}

func uuidValid(args ...eval.Object) (eval.Object, error) {
	s, ok := args[0].(*eval.String)
	if !ok {
		return eval.FALSE, nil
	}
	_, err := uuid.Parse(s.Value)
	return eval.NewBoolean(err == nil), nil
}

func humanizeBytes(args ...eval.Object) (eval.Object, error) {
	n, err := intArg(args, 0, "size")
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("size must not be negative, got %d", n)
	}
	return eval.NewString(humanize.Bytes(uint64(n))), nil
}

func humanizeComma(args ...eval.Object) (eval.Object, error) {
	switch n := args[0].(type) {
	case *eval.Integer:
		return eval.NewString(humanize.Comma(n.Value)), nil
	case *eval.Float:
		return eval.NewString(humanize.Commaf(n.Value)), nil
	}
	return nil, fmt.Errorf("number must be INTEGER or FLOAT, got %s", args[0].Kind())
}

func humanizeOrdinal(args ...eval.Object) (eval.Object, error) {
	n, err := intArg(args, 0, "number")
	if err != nil {
		return nil, err
	}
	return eval.NewString(humanize.Ordinal(int(n))), nil
}

// humanizeAgo takes a unix time in milliseconds.
func humanizeAgo(args ...eval.Object) (eval.Object, error) {
	ms, err := intArg(args, 0, "time")
	if err != nil {
		return nil, err
	}
	return eval.NewString(humanize.Time(time.UnixMilli(ms))), nil
}

func timeNowMs(args ...eval.Object) (eval.Object, error) {
	return eval.NewInteger(time.Now().UnixMilli()), nil
}

func timeSleepMs(args ...eval.Object) (eval.Object, error) {
	ms, err := intArg(args, 0, "milliseconds")
	if err != nil {
		return nil, err
	}
	time.Sleep(time.Duration(ms) * time.Millisecond)
	return eval.NULL, nil
}

// timeFormat(ms, layout?) formats a unix time in milliseconds as UTC,
// RFC 3339 unless a Go layout is given.
func timeFormat(args ...eval.Object) (eval.Object, error) {
	if len(args) < 1 || len(args) > 2 {
		return nil, fmt.Errorf("expected time and optional layout, got %d arguments", len(args))
	}
	ms, err := intArg(args, 0, "time")
	if err != nil {
		return nil, err
	}
	layout := time.RFC3339
	if len(args) == 2 {
		if layout, err = stringArg(args, 1, "layout"); err != nil {
			return nil, err
		}
	}
	return eval.NewString(time.UnixMilli(ms).UTC().Format(layout)), nil
}

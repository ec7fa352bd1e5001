package stdlib

import (
	"fmt"
	"os"
	"sort"

	"github.com/joho/godotenv"

	"sona/pkg/eval"
)

var envBridges = []registration{
	{"__native__env_get", -1, envGet},
	{"__native__env_load", -1, envLoad},
	{"__native__env_read", 1, envRead},
}

// envGet(name, default?)
func envGet(args ...eval.Object) (eval.Object, error) {
	if len(args) < 1 || len(args) > 2 {
		return nil, fmt.Errorf("expected name and optional default, got %d arguments", len(args))
	}
	name, err := stringArg(args, 0, "name")
	if err != nil {
		return nil, err
	}
	if v, ok := os.LookupEnv(name); ok {
		return eval.NewString(v), nil
	}
	if len(args) == 2 {
		return args[1], nil
	}
	return eval.NULL, nil
}

// envLoad(files...) loads .env files into the process environment without
// overriding variables that are already set. No arguments means ".env".
func envLoad(args ...eval.Object) (eval.Object, error) {
	files := make([]string, 0, len(args))
	for i := range args {
		f, err := stringArg(args, i, "file")
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	if err := godotenv.Load(files...); err != nil {
		return nil, err
	}
	return eval.TRUE, nil
}

// envRead(file) parses a .env file into a dict and leaves the environment
// alone.
func envRead(args ...eval.Object) (eval.Object, error) {
	file, err := stringArg(args, 0, "file")
	if err != nil {
		return nil, err
	}
	values, err := godotenv.Read(file)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	dict := eval.NewDict()
	for _, k := range keys {
		dict.SetString(k, eval.NewString(values[k]))
	}
	return dict, nil
}

package stdlib

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"sona/pkg/bridge"
	"sona/pkg/eval"
	"sona/pkg/module"
	"sona/pkg/parser"
)

type harness struct {
	reg    *bridge.Registry
	loader *module.Loader
	out    *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	reg := bridge.NewRegistry()
	if err := RegisterAll(reg); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}
	var out bytes.Buffer
	loader := module.NewLoader(module.Options{
		Roots:    []module.Root{Root()},
		Registry: reg,
		Out:      &out,
	})
	return &harness{reg: reg, loader: loader, out: &out}
}

func (h *harness) run(t *testing.T, input string) eval.Object {
	t.Helper()
	result, err := h.try(t, input)
	if err != nil {
		t.Fatalf("unexpected error: %v\nscript:\n%s", err, input)
	}
	return result
}

func (h *harness) try(t *testing.T, input string) (eval.Object, error) {
	t.Helper()
	program, errs := parser.Parse(input)
	if len(errs) != 0 {
		t.Fatalf("parser errors: %v", errs)
	}
	e := eval.New(eval.Options{Importer: h.loader, Out: h.out})
	return e.Run(program, e.NewScope())
}

func TestRegisterAllIsIdempotent(t *testing.T) {
	reg := bridge.NewRegistry()
	if err := RegisterAll(reg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	n := reg.Len()
	if err := RegisterAll(reg); err != nil {
		t.Fatalf("second registration: %v", err)
	}
	if reg.Len() != n {
		t.Fatalf("registry grew from %d to %d", n, reg.Len())
	}
}

func TestEveryNativeReferenceIsRegistered(t *testing.T) {
	reg := bridge.NewRegistry()
	if err := RegisterAll(reg); err != nil {
		t.Fatal(err)
	}
	for _, name := range Modules() {
		src, ok := Source(name)
		if !ok {
			t.Fatalf("%s: no source", name)
		}
		for _, id := range module.NativeRefs(src) {
			if !reg.Has(id) {
				t.Errorf("%s references unregistered bridge %s", name, id)
			}
		}
	}
}

func TestEveryModuleLoads(t *testing.T) {
	h := newHarness(t)
	names := Modules()
	if len(names) < 10 {
		t.Fatalf("expected the embedded library, got %v", names)
	}
	for _, name := range names {
		if _, err := h.loader.Load(name); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
	for _, pure := range []string{"stack", "queue", "math", "strings"} {
		mod, _ := h.loader.Load(pure)
		if mod.RequiresBridge {
			t.Errorf("%s must be pure Sona", pure)
		}
	}
}

func TestStackAndQueue(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		input    string
		expected string
	}{
		{`import stack
let s = stack.new()
s.push("a")
s.push("b")
[s.pop(), s.size(), s.pop(), s.pop()]`, `["b", 0, "a", null]`},
		{`import stack
let s = stack.new().push(1).push(2)
[s.peek(), s.is_empty()]`, "[2, false]"},
		{`import queue
let q = queue.new()
q.enqueue("x")
q.enqueue("y")
[q.dequeue(), q.peek(), q.size()]`, `["x", "y", 1]`},
	}
	for _, tt := range tests {
		if got := h.run(t, tt.input).Inspect(); got != tt.expected {
			t.Errorf("expected=%q, got=%q", tt.expected, got)
		}
	}
}

func TestMathAndStrings(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		input    string
		expected string
	}{
		{"import math\nmath.pow(2, 10)", "1024"},
		{"import math\nmath.pow(2, -1)", "0.5"},
		{"import math\nmath.gcd(84, -36)", "12"},
		{"import math\nmath.factorial(5)", "120"},
		{"import math\nmath.clamp(15, 0, 10)", "10"},
		{"import math\nmath.sum([1, 2, 3.5])", "6.5"},
		{"from math import abs, PI\n[abs(-3), PI > 3.14]", "[3, true]"},
		{"import strings\nstrings.reverse(\"abc\")", "cba"},
		{"import strings\nstrings.capitalize(\"sona\")", "Sona"},
		{"import strings\nstrings.pad_left(\"7\", 3, \"0\")", "007"},
		{"import strings\nstrings.count(\"a-b-c\", \"-\")", "2"},
		{"import strings\nstrings.words(\"  two   words \")", `["two", "words"]`},
	}
	for _, tt := range tests {
		if got := h.run(t, tt.input).Inspect(); got != tt.expected {
			t.Errorf("%q: expected=%q, got=%q", tt.input, tt.expected, got)
		}
	}
}

func TestHashing(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		input    string
		expected string
	}{
		{`import hashing
hashing.new().sha256("abc")`, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
		{`import hashing
hashing.digest("sha256", "")`, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{`import hashing
hashing.new().sha512("abc")`, "ddaf35a193617abacc417349ae20413112e6fa4e89a97ea20a9eeee64b55d39a2192992a274fc1a836ba3c23a3feebbd454d4423643ce80e2a9ac94fa54ca49f"},
		{`import hashing
hashing.digest("sha3_256", "abc")`, "3a985da74fe225b2045c172d6bd390bd855f086e3e9d525b46bfe24511431532"},
		{`import hashing
hashing.digest("blake2b", "abc").len()`, "64"},
	}
	for _, tt := range tests {
		if got := h.run(t, tt.input).Inspect(); got != tt.expected {
			t.Errorf("%q: expected=%q, got=%q", tt.input, tt.expected, got)
		}
	}

	if _, err := h.try(t, "import hashing\nhashing.digest(\"md5\", \"abc\")"); err == nil {
		t.Fatalf("unknown algorithm must fail")
	}
}

func TestAuthAndJWT(t *testing.T) {
	h := newHarness(t)
	got := h.run(t, `import auth
let hash = auth.hash_password_cost("s3cret", 4)
[hash.starts_with("$2a$"), auth.verify_password(hash, "s3cret"), auth.verify_password(hash, "nope")]`)
	if got.Inspect() != "[true, true, false]" {
		t.Fatalf("bcrypt round trip wrong: %s", got.Inspect())
	}

	got = h.run(t, `import jwt
let token = jwt.sign({"sub": "ada", "admin": true}, "k1", "1h")
let claims = jwt.verify(token, "k1")
[claims.sub, claims.admin, claims.has("exp"), jwt.verify(token, "k2"), jwt.is_valid("garbage", "k1")]`)
	if got.Inspect() != `["ada", true, true, null, false]` {
		t.Fatalf("jwt round trip wrong: %s", got.Inspect())
	}

	if _, err := h.try(t, `import jwt
jwt.sign({}, "k", "soon")`); err == nil || !strings.Contains(err.Error(), "invalid duration") {
		t.Fatalf("expected duration error, got %v", err)
	}
}

func TestJSON(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		input    string
		expected string
	}{
		{`import json
json.encode({"z": 1, "a": [true, null, 2.5, "s"]})`, `{"z":1,"a":[true,null,2.5,"s"]}`},
		{`import json
json.decode("{\"z\": 1, \"a\": {\"n\": [1, 2]}}")`, `{"z": 1, "a": {"n": [1, 2]}}`},
		{`import json
json.decode("3.25") + 1`, "4.25"},
		{`import json
json.pretty({"a": 1})`, "{\n  \"a\": 1\n}"},
		{`import json
let v = {"name": "sona", "tags": ["x"]}
json.decode(json.encode(v)) == v`, "true"},
	}
	for _, tt := range tests {
		if got := h.run(t, tt.input).Inspect(); got != tt.expected {
			t.Errorf("%q: expected=%q, got=%q", tt.input, tt.expected, got)
		}
	}

	if _, err := h.try(t, "import json\njson.decode(\"{1}\")"); err == nil {
		t.Fatalf("invalid json must fail")
	}

	_, err := h.try(t, `import json
let shared = [1]
let ok = json.encode({"a": shared, "b": shared})
let node = {"name": "n"}
node.self = node
json.encode(node)`)
	if err == nil || !strings.Contains(err.Error(), "contains itself") {
		t.Fatalf("expected an error for a self-referencing dict, got %v", err)
	}
}

func TestEnv(t *testing.T) {
	t.Setenv("SONA_STDLIB_TEST", "present")
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	if err := os.WriteFile(envFile, []byte("B_KEY=2\nA_KEY=one\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	h := newHarness(t)
	script := fmt.Sprintf(`import env
[env.get("SONA_STDLIB_TEST"), env.get("SONA_STDLIB_MISSING"), env.get_or("SONA_STDLIB_MISSING", "dflt"), env.read(%q)]`, envFile)
	got := h.run(t, script).Inspect()
	expected := `["present", null, "dflt", {"A_KEY": "one", "B_KEY": "2"}]`
	if got != expected {
		t.Fatalf("expected=%q, got=%q", expected, got)
	}
}

func TestUUIDHumanizeTime(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		input    string
		expected string
	}{
		{"import uuid\nlet id = uuid.v4()\n[id.len(), uuid.is_valid(id), uuid.is_valid(\"nope\")]", "[36, true, false]"},
		{"import uuid\nuuid.v7() != uuid.v7()", "true"},
		{"import humanize\nhumanize.bytes(82854982)", "83 MB"},
		{"import humanize\nhumanize.comma(1234567)", "1,234,567"},
		{"import humanize\nhumanize.ordinal(3)", "3rd"},
		{"import time\ntime.format(0)", "1970-01-01T00:00:00Z"},
		{"import time\ntime.format_layout(86400000, \"2006-01-02\")", "1970-01-02"},
		{"import time\nlet t = time.now_ms()\ntime.sleep_ms(1)\ntime.elapsed_ms(t) >= 1", "true"},
	}
	for _, tt := range tests {
		if got := h.run(t, tt.input).Inspect(); got != tt.expected {
			t.Errorf("%q: expected=%q, got=%q", tt.input, tt.expected, got)
		}
	}
}

func TestMailRender(t *testing.T) {
	h := newHarness(t)
	got := h.run(t, `import mail
mail.render({"to": ["a@example.com", "b@example.com"], "from": "me@example.com", "subject": "Hi", "body": "hello there"})`)
	text := got.Inspect()
	for _, want := range []string{"From: me@example.com", "To: a@example.com, b@example.com", "Subject: Hi", "hello there"} {
		if !strings.Contains(text, want) {
			t.Errorf("rendered message lacks %q:\n%s", want, text)
		}
	}

	if _, err := h.try(t, `import mail
mail.render({"subject": "nobody"})`); err == nil || !strings.Contains(err.Error(), "recipient") {
		t.Fatalf("expected missing recipient error, got %v", err)
	}

	t.Setenv("SMTP_HOST", "")
	if _, err := h.try(t, `import mail
mail.send({"to": "a@example.com"})`); err == nil || !strings.Contains(err.Error(), "SMTP_HOST") {
		t.Fatalf("expected SMTP configuration error, got %v", err)
	}
}

func TestWebsocketEcho(t *testing.T) {
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, append([]byte("echo: "), data...)); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	h := newHarness(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	got := h.run(t, fmt.Sprintf(`import websocket
let ws = websocket.connect(%q)
ws.send("one")
let first = ws.read()
ws.send("two")
let second = ws.read()
ws.close()
[first, second]`, url))
	if got.Inspect() != `["echo: one", "echo: two"]` {
		t.Fatalf("wrong echo: %s", got.Inspect())
	}

	if _, err := h.try(t, `import websocket
websocket.connect("ws://127.0.0.1:1/none")`); err == nil {
		t.Fatalf("dialing a closed port must fail")
	}
}

func TestSQLiteInMemory(t *testing.T) {
	h := newHarness(t)
	got := h.run(t, `import db
let conn = db.open("sqlite", ":memory:")
conn.exec("create table users (id integer primary key, name text, score real)")
conn.exec("insert into users (name, score) values (?, ?)", "ada", 9.5)
conn.exec("insert into users (name, score) values (?, ?)", "alan", 7)
let n = conn.exec("update users set score = score + 1 where score < ?", 9)
let rows = conn.query("select name, score from users order by id")
let top = conn.first("select name from users order by score desc")
conn.close()
[n, rows, top.name]`)
	expected := `[1, [{"name": "ada", "score": 9.5}, {"name": "alan", "score": 8}], "ada"]`
	if got.Inspect() != expected {
		t.Fatalf("expected=%q, got=%q", expected, got.Inspect())
	}

	if _, err := h.try(t, `import db
db.open("oracle", "x")`); err == nil || !strings.Contains(err.Error(), "unsupported database type") {
		t.Fatalf("expected unsupported driver error, got %v", err)
	}
}

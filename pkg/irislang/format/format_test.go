package format

import (
	"strings"
	"testing"

	"github.com/irisbuild/iris/pkg/irislang/parser"
)

// Formatting then re-parsing yields a structurally identical AST.
func TestFormatIdempotence(t *testing.T) {
	sources := []string{
		"project \"p\" do\n  version = \"0.1\"\nend",
		`executable "app" do
    sources = glob("src/**/*.cpp")
    flags = ["-O2", "-Wall"]
    deps = ["core"]
end`,
		`compiler do
    if buildtype == "debug" do
        flags = ["-g", "-O0"]
    else if buildtype == "release" do
        flags = ["-O3"]
    else
        flags = []
    end
end`,
		`fn double(x) do
    return x * 2
end

for f in [1, 2, 3] do
    print(double(f))
end`,
		`task :lint do
    run("clang-tidy src/*.cpp")
end

unless quiet do
    warning("noisy")
end`,
		`dependency "zlib" do
    version = "1.3"
    type = :system
end

h = {a: 1, b: "two"}
x = -h["a"] + 3.5
ok = not (x > 2) and true or false
`,
	}

	for _, src := range sources {
		first, err := parser.Parse(src)
		if err != nil {
			t.Fatalf("parse error on input: %v\n%s", err, src)
		}

		formatted := Format(first)

		second, err := parser.Parse(formatted)
		if err != nil {
			t.Fatalf("parse error on formatted output: %v\n%s", err, formatted)
		}

		if first.String() != second.String() {
			t.Errorf("formatting changed structure:\ninput:\n%s\nformatted:\n%s\nfirst AST: %s\nsecond AST: %s",
				src, formatted, first.String(), second.String())
		}

		// Formatting the formatted output must be a fixed point
		if again := Format(second); again != formatted {
			t.Errorf("format is not idempotent:\nfirst:\n%s\nsecond:\n%s", formatted, again)
		}
	}
}

func TestFormatIndentation(t *testing.T) {
	src := "project \"p\" do\nversion = \"1\"\nend"
	got := Source(src)

	want := "project \"p\" do\n    version = \"1\"\nend\n"
	if got != want {
		t.Errorf("expected:\n%q\ngot:\n%q", want, got)
	}
}

func TestSourceReturnsInputOnParseError(t *testing.T) {
	src := "project do" // missing name
	if got := Source(src); got != src {
		t.Errorf("expected unparseable input to pass through, got %q", got)
	}
}

func TestFormatElseIfChain(t *testing.T) {
	src := `if a do
x = 1
else if b do
x = 2
else
x = 3
end`
	got := Source(src)
	if !strings.Contains(got, "else if b do") {
		t.Errorf("expected chained else if in output:\n%s", got)
	}
	// One end closes the whole chain
	if strings.Count(got, "end") != 1 {
		t.Errorf("expected a single end, got:\n%s", got)
	}
}

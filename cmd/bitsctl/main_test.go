package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/danmuck/bits/internal/bits"
	"github.com/danmuck/bits/internal/bits/export"
	"github.com/fxamacker/cbor/v2"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.Execute()
	return out.String(), err
}

func TestRunPrintsBothValues(t *testing.T) {
	out, err := execute(t, "", "run", "9C0141080250320F1802104A08")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != "version_total 20\nvalue 1\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestSumAndEvalVectors(t *testing.T) {
	cases := []struct {
		cmd  string
		hex  string
		want string
	}{
		{"sum", "8A004A801A8002F478", "16"},
		{"sum", "620080001611562C8802118E34", "12"},
		{"sum", "C0015000016115A2E0802F182340", "23"},
		{"sum", "A0016C880162017C3686B18A3D4780", "31"},
		{"eval", "C200B40A82", "3"},
		{"eval", "04005AC33890", "54"},
		{"eval", "880086C3E88112", "7"},
		{"eval", "CE00C43D881120", "9"},
		{"eval", "D8005AC2A8F0", "1"},
		{"eval", "F600BC2D8F", "0"},
		{"eval", "9C005AC2F8F0", "0"},
		{"eval", "9C0141080250320F1802104A08", "1"},
	}
	for _, tc := range cases {
		out, err := execute(t, "", tc.cmd, tc.hex)
		if err != nil {
			t.Fatalf("%s %s: %v", tc.cmd, tc.hex, err)
		}
		if strings.TrimSpace(out) != tc.want {
			t.Fatalf("%s %s: got %q want %q", tc.cmd, tc.hex, out, tc.want)
		}
	}
}

func TestExprPrintsInfix(t *testing.T) {
	out, err := execute(t, "", "expr", "9C0141080250320F1802104A08")
	if err != nil {
		t.Fatalf("expr: %v", err)
	}
	if strings.TrimSpace(out) != "((1 + 3) == (2 * 2))" {
		t.Fatalf("unexpected expression: %q", out)
	}
}

func TestReadsStdinWhenNoArgument(t *testing.T) {
	out, err := execute(t, "D2FE28\n", "eval")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if strings.TrimSpace(out) != "2021" {
		t.Fatalf("unexpected value: %q", out)
	}

	out, err = execute(t, "D2FE28", "sum", "-")
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if strings.TrimSpace(out) != "6" {
		t.Fatalf("unexpected version total: %q", out)
	}
}

func TestReadsTranscriptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.txt")
	if err := os.WriteFile(path, []byte("EE00D40C823060\n"), 0o600); err != nil {
		t.Fatalf("write input: %v", err)
	}
	out, err := execute(t, "", "eval", "--file", path)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if strings.TrimSpace(out) != "3" {
		t.Fatalf("unexpected value: %q", out)
	}

	if _, err := execute(t, "", "eval", "--file", filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Fatalf("expected missing file error")
	}
}

func TestHexModeSelectsStrictParsing(t *testing.T) {
	if _, err := execute(t, "", "eval", "D2-FE-28"); err != nil {
		t.Fatalf("lenient eval: %v", err)
	}
	_, err := execute(t, "", "eval", "--hex-mode", "strict", "D2-FE-28")
	if !errors.Is(err, bits.ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}
	if _, err := execute(t, "", "eval", "--hex-mode", "fuzzy", "D2FE28"); err == nil {
		t.Fatalf("expected invalid hex mode error")
	}
}

func TestMaxDepthFlag(t *testing.T) {
	// min(min(min(literal))): the literal sits at depth 3.
	_, err := execute(t, "", "eval", "--max-depth", "1", "8A004A801A8002F478")
	if !errors.Is(err, bits.ErrDepthExceeded) {
		t.Fatalf("expected ErrDepthExceeded, got %v", err)
	}
}

func TestEvaluationErrorsPropagate(t *testing.T) {
	_, err := execute(t, "", "eval", "D2FE")
	if !errors.Is(err, bits.ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
	_, err = execute(t, "", "eval", "zz")
	if !errors.Is(err, bits.ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}
}

func TestDumpFormats(t *testing.T) {
	out, err := execute(t, "", "dump", "EE00D40C823060")
	if err != nil {
		t.Fatalf("dump json: %v", err)
	}
	var doc export.Document
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if doc.VersionTotal != 14 || doc.Value == nil || *doc.Value != 3 {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if len(doc.Root.Children) != 3 {
		t.Fatalf("expected 3 children, got %d", len(doc.Root.Children))
	}

	out, err = execute(t, "", "dump", "--format", "yaml", "EE00D40C823060")
	if err != nil {
		t.Fatalf("dump yaml: %v", err)
	}
	if !strings.HasPrefix(out, "version_total: 14\n") {
		t.Fatalf("unexpected yaml: %q", out)
	}

	out, err = execute(t, "", "dump", "--format", "cbor", "EE00D40C823060")
	if err != nil {
		t.Fatalf("dump cbor: %v", err)
	}
	var fromCBOR export.Document
	if err := cbor.Unmarshal([]byte(out), &fromCBOR); err != nil {
		t.Fatalf("decode cbor: %v", err)
	}
	if fromCBOR.VersionTotal != 14 {
		t.Fatalf("unexpected cbor document: %+v", fromCBOR)
	}

	if _, err := execute(t, "", "dump", "--format", "xml", "EE00D40C823060"); err == nil {
		t.Fatalf("expected unknown format error")
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bitsctl.toml")
	out, err := execute(t, "", "config", "init", path)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, path) {
		t.Fatalf("unexpected init output: %q", out)
	}
	if _, err := execute(t, "", "config", "init", path); err == nil {
		t.Fatalf("expected overwrite refusal")
	}
	if _, err := execute(t, "", "config", "init", "--force", path); err != nil {
		t.Fatalf("config init --force: %v", err)
	}

	out, err = execute(t, "", "config", "validate", path)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "validated") {
		t.Fatalf("unexpected validate output: %q", out)
	}

	bad := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(bad, []byte("[decoder]\nhex_mode = \"fuzzy\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := execute(t, "", "config", "validate", bad); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestConfigFileDrivesDecoder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bitsctl.toml")
	body := "[decoder]\nhex_mode = \"strict\"\n\n[log]\nlevel = \"off\"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, err := execute(t, "", "eval", "--config", path, "D2 FE x28")
	if !errors.Is(err, bits.ErrFormat) {
		t.Fatalf("expected strict ErrFormat, got %v", err)
	}

	// Flags win over the file.
	out, err := execute(t, "", "eval", "--config", path, "--hex-mode", "lenient", "D2 FE x28")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if strings.TrimSpace(out) != "2021" {
		t.Fatalf("unexpected value: %q", out)
	}
}

func TestMetricsTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bits.prom")
	if _, err := execute(t, "", "run", "--metrics-textfile", path, "C200B40A82"); err != nil {
		t.Fatalf("run: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	text := string(data)
	for _, want := range []string{
		`bits_decoder_transcripts_total{command="run",result="ok"}`,
		`bits_decoder_packets_total{type="sum"}`,
		`bits_decoder_input_bits`,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("textfile missing %s:\n%s", want, text)
		}
	}
}

func TestInputCapAppliesToEverySource(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bitsctl.toml")
	if err := os.WriteFile(cfgPath, []byte("[decoder]\nmax_input_bits = 64\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	padded := strings.Repeat(" ", 5000) + "D2FE28"
	inputPath := filepath.Join(dir, "input.txt")
	if err := os.WriteFile(inputPath, []byte(padded), 0o600); err != nil {
		t.Fatalf("write input: %v", err)
	}

	if _, err := execute(t, padded, "eval", "--config", cfgPath); !errors.Is(err, bits.ErrInputTooLarge) {
		t.Fatalf("stdin: expected ErrInputTooLarge, got %v", err)
	}
	if _, err := execute(t, "", "eval", "--config", cfgPath, "--file", inputPath); !errors.Is(err, bits.ErrInputTooLarge) {
		t.Fatalf("file: expected ErrInputTooLarge, got %v", err)
	}
	if _, err := execute(t, "", "eval", "--config", cfgPath, padded); !errors.Is(err, bits.ErrInputTooLarge) {
		t.Fatalf("argument: expected ErrInputTooLarge, got %v", err)
	}

	short := strings.Repeat(" ", 100) + "D2FE28\n"
	if err := os.WriteFile(inputPath, []byte(short), 0o600); err != nil {
		t.Fatalf("write input: %v", err)
	}
	for _, args := range [][]string{
		{"eval", "--config", cfgPath},
		{"eval", "--config", cfgPath, "--file", inputPath},
	} {
		out, err := execute(t, short, args...)
		if err != nil {
			t.Fatalf("%v: %v", args, err)
		}
		if strings.TrimSpace(out) != "2021" {
			t.Fatalf("%v: unexpected value %q", args, out)
		}
	}
}

func inputBitsSum(t *testing.T, path string) float64 {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		if rest, ok := strings.CutPrefix(line, "bits_decoder_input_bits_sum "); ok {
			v, err := strconv.ParseFloat(strings.TrimSpace(rest), 64)
			if err != nil {
				t.Fatalf("parse %q: %v", line, err)
			}
			return v
		}
	}
	t.Fatalf("input_bits sum missing from textfile")
	return 0
}

func TestInputBitsMetricCountsDecodedDigits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bits.prom")
	if _, err := execute(t, "", "eval", "--metrics-textfile", path, "D2FE28"); err != nil {
		t.Fatalf("eval: %v", err)
	}
	before := inputBitsSum(t, path)

	if _, err := execute(t, "", "eval", "--metrics-textfile", path, "D2-FE-28"); err != nil {
		t.Fatalf("eval: %v", err)
	}
	if got := inputBitsSum(t, path) - before; got != 24 {
		t.Fatalf("expected 24 recorded bits, got %v", got)
	}
}

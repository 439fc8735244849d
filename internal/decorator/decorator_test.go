package decorator

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/tidwall/gjson"
)

func TestDecorate_InjectsBannerAsFirstSystemBlock(t *testing.T) {
	body := []byte(`{"system":"be helpful","messages":[]}`)
	out, err := Decorate(body, "chat_completions", 3)
	if err != nil {
		t.Fatalf("Decorate: %v", err)
	}
	first := gjson.GetBytes(out, "system.0.text").String()
	if first != Banner {
		t.Errorf("got first system block %q, want banner %q", first, Banner)
	}
	second := gjson.GetBytes(out, "system.1.text").String()
	if second != "be helpful" {
		t.Errorf("expected original system text preserved as the second block, got %q", second)
	}
}

func TestDecorate_IsIdempotent(t *testing.T) {
	body := []byte(`{"system":"be helpful","messages":[{"role":"user","content":"hi"}],"tools":[{"name":"get_weather","input_schema":{"type":"object","properties":{}}}]}`)
	once, err := Decorate(body, "chat_completions", 2)
	if err != nil {
		t.Fatalf("Decorate: %v", err)
	}
	twice, err := Decorate(once, "chat_completions", 2)
	if err != nil {
		t.Fatalf("second Decorate: %v", err)
	}
	if !bytes.Equal(once, twice) {
		t.Errorf("Decorate is not idempotent:\nonce:  %s\ntwice: %s", once, twice)
	}
}

func TestDecorate_PlaceholderToolOnlyForMessagesEndpoint(t *testing.T) {
	body := []byte(`{"system":"x","messages":[]}`)

	native, err := Decorate(body, "messages", 2)
	if err != nil {
		t.Fatalf("Decorate: %v", err)
	}
	if name := gjson.GetBytes(native, "tools.0.name").String(); name != PlaceholderToolName {
		t.Errorf("expected placeholder tool on the native endpoint, got tools.0.name=%q", name)
	}

	nonNative, err := Decorate(body, "chat_completions", 2)
	if err != nil {
		t.Fatalf("Decorate: %v", err)
	}
	if gjson.GetBytes(nonNative, "tools").Exists() {
		t.Error("expected no placeholder tool injected for a non-native endpoint")
	}
}

func TestDecorate_ToolsGetMCPPrefixAndSchemaDefaults(t *testing.T) {
	body := []byte(`{"messages":[],"tools":[{"name":"get_weather"},{"name":"mcp_already_prefixed"}]}`)
	out, err := Decorate(body, "chat_completions", 2)
	if err != nil {
		t.Fatalf("Decorate: %v", err)
	}
	if got := gjson.GetBytes(out, "tools.0.name").String(); got != "mcp_get_weather" {
		t.Errorf("got tools.0.name=%q, want mcp_get_weather", got)
	}
	if got := gjson.GetBytes(out, "tools.1.name").String(); got != "mcp_already_prefixed" {
		t.Errorf("already-prefixed tool name should be left alone, got %q", got)
	}
	if got := gjson.GetBytes(out, "tools.0.input_schema.type").String(); got != "object" {
		t.Errorf("expected input_schema.type=object, got %q", got)
	}
	if !gjson.GetBytes(out, "tools.0.input_schema.properties").Exists() {
		t.Error("expected input_schema.properties to be filled in")
	}
	if !gjson.GetBytes(out, "tools.1.cache_control").Exists() {
		t.Error("expected a cache marker on the last tool only")
	}
	if gjson.GetBytes(out, "tools.0.cache_control").Exists() {
		t.Error("did not expect a cache marker on a non-last tool")
	}
}

func TestDecorate_PrefixesToolUseBlockNames(t *testing.T) {
	body := []byte(`{"messages":[{"role":"assistant","content":[{"type":"tool_use","name":"get_weather","input":{}}]}]}`)
	out, err := Decorate(body, "chat_completions", 2)
	if err != nil {
		t.Fatalf("Decorate: %v", err)
	}
	if got := gjson.GetBytes(out, "messages.0.content.0.name").String(); got != "mcp_get_weather" {
		t.Errorf("got %q, want mcp_get_weather", got)
	}
}

func TestDecorate_CacheMarkersOnlyOnTrailingMessages(t *testing.T) {
	body := []byte(`{"messages":[
		{"role":"user","content":"one"},
		{"role":"assistant","content":"two"},
		{"role":"user","content":"three"}
	]}`)
	out, err := Decorate(body, "chat_completions", 2)
	if err != nil {
		t.Fatalf("Decorate: %v", err)
	}
	if gjson.GetBytes(out, "messages.0.content.0.cache_control").Exists() {
		t.Error("did not expect a cache marker outside the trailing window")
	}
	if !gjson.GetBytes(out, "messages.1.content.0.cache_control").Exists() {
		t.Error("expected a cache marker inside the trailing window")
	}
	if !gjson.GetBytes(out, "messages.2.content.0.cache_control").Exists() {
		t.Error("expected a cache marker on the last message")
	}
}

func TestStripPrefix_RemovesMCPPrefixFromNameFields(t *testing.T) {
	in := []byte(`{"type":"tool_use","name":"mcp_get_weather","input":{}}`)
	out := StripPrefix(in)
	var decoded map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("stripped output is not valid JSON: %v", err)
	}
	if decoded["name"] != "get_weather" {
		t.Errorf("got name=%v, want get_weather", decoded["name"])
	}
}

func TestStripPrefix_IsIdempotent(t *testing.T) {
	in := []byte(`{"name":"mcp_foo"}`)
	once := StripPrefix(in)
	twice := StripPrefix(once)
	if !bytes.Equal(once, twice) {
		t.Errorf("StripPrefix is not idempotent: once=%s twice=%s", once, twice)
	}
}

func TestStripPrefixString_MatchesByteForm(t *testing.T) {
	s := `data: {"name":"mcp_bar"}`
	if got, want := StripPrefixString(s), string(StripPrefix([]byte(s))); got != want {
		t.Errorf("StripPrefixString diverged from StripPrefix: %q vs %q", got, want)
	}
}

package board

import (
	"strings"
	"testing"
)

// TestEventsChannel tests events channel naming
func TestEventsChannel(t *testing.T) {
	channel := EventsChannel("default-1")

	expected := "postits:default-1:events"
	if channel != expected {
		t.Errorf("EventsChannel() = %q, expected %q", channel, expected)
	}
}

// TestCommandsChannel tests commands channel naming
func TestCommandsChannel(t *testing.T) {
	channel := CommandsChannel("retro")

	expected := "postits:retro:commands"
	if channel != expected {
		t.Errorf("CommandsChannel() = %q, expected %q", channel, expected)
	}
	if !strings.HasPrefix(channel, "postits:") {
		t.Error("commands channel should start with 'postits:'")
	}
}

// TestChannelIsolation verifies different instances never share a channel
func TestChannelIsolation(t *testing.T) {
	if EventsChannel("a") == EventsChannel("b") {
		t.Error("events channels for different instances must differ")
	}
	if EventsChannel("a") == CommandsChannel("a") {
		t.Error("events and commands channels must differ")
	}
}

package main

import (
	"reflect"
	"testing"

	uhppoted "github.com/uhppoted/uhppoted-lib/command"
)

func TestCommandList(t *testing.T) {
	expected := []string{"version", "sync", "compare", "get", "put"}

	names := []string{}
	for _, c := range cli {
		names = append(names, c.Name())

		if c.FlagSet() == nil {
			t.Errorf("'%v' command has no flagset", c.Name())
		}
	}

	if !reflect.DeepEqual(names, expected) {
		t.Errorf("Incorrect command list - expected:%v, got:%v", expected, names)
	}
}

func TestHelpCommand(t *testing.T) {
	var cmd uhppoted.Command = help

	if cmd.Name() != "help" {
		t.Errorf("Incorrect help command name - expected:%v, got:%v", "help", cmd.Name())
	}

	if cmd.FlagSet() == nil {
		t.Errorf("Help command has no flagset")
	}
}

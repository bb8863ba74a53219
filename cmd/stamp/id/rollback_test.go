package id

import (
	"io"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func TestRollbackRequiresForce(t *testing.T) {
	cmd := newRollbackCmd(viper.New())
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"abcd1234", "--to", "ef567890"})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("rollback ran without --force")
	}
	if !strings.Contains(err.Error(), "--force") {
		t.Errorf("error %q does not point at --force", err)
	}
	if !strings.Contains(err.Error(), "irreversible") {
		t.Errorf("error %q does not warn that rollback is irreversible", err)
	}
}

func TestRollbackHelpWarnsIrreversible(t *testing.T) {
	cmd := newRollbackCmd(viper.New())
	if !strings.Contains(cmd.Long, "irreversible") {
		t.Error("help text does not warn that rollback is irreversible")
	}
	if !strings.Contains(cmd.Long, "cannot be re-admitted") {
		t.Error("help text does not warn that removed transactions cannot be re-admitted")
	}
}

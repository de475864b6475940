package service

import (
	"bytes"
	"errors"
	"testing"
)

func TestBackupRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	parent := env.register(t, "parent@example.com")
	child := env.addChild(t, parent.ID, "Lucas")

	visit, err := env.entry.IssueToken(parent.ID, child.ID)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if _, err := env.entry.CheckIn(visit.Token, false); err != nil {
		t.Fatalf("CheckIn() error = %v", err)
	}
	if _, err := env.entry.CheckOut(visit.Token); err != nil {
		t.Fatalf("CheckOut() error = %v", err)
	}
	if _, err := env.support.CreateTicket(parent.ID, TicketInput{Type: "doubt", Subject: "Socks", Description: "Needed?"}); err != nil {
		t.Fatalf("CreateTicket() error = %v", err)
	}

	var buf bytes.Buffer
	exported, err := env.backup.ExportToWriter(&buf)
	if err != nil {
		t.Fatalf("ExportToWriter() error = %v", err)
	}
	if len(exported.Users) != 1 || len(exported.Children) != 1 || len(exported.Visits) != 1 ||
		len(exported.Loyalty) != 1 || len(exported.Tickets) != 1 {
		t.Fatalf("ExportToWriter() = %d users %d children %d visits %d cards %d tickets",
			len(exported.Users), len(exported.Children), len(exported.Visits), len(exported.Loyalty), len(exported.Tickets))
	}

	if err := env.backup.ImportFromReader(bytes.NewReader(buf.Bytes())); !errors.Is(err, ErrDatabaseNotEmpty) {
		t.Errorf("ImportFromReader() into populated database error = %v, want ErrDatabaseNotEmpty", err)
	}

	target := newTestEnv(t)
	if err := target.backup.ImportFromReader(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("ImportFromReader() error = %v", err)
	}

	restored, err := target.auth.ValidateSession("missing")
	if err == nil || restored != nil {
		t.Error("sessions should not be part of a backup")
	}
	if _, _, err := target.auth.Login("parent@example.com", "password123"); err != nil {
		t.Errorf("Login() after import error = %v", err)
	}

	program, err := target.loyalty.GetProgram(parent.ID)
	if err != nil {
		t.Fatalf("GetProgram() error = %v", err)
	}
	if program.Seals != 1 {
		t.Errorf("imported seals = %d, want 1", program.Seals)
	}

	stored, err := target.children.GetChildByID(child.ID)
	if err != nil || stored == nil {
		t.Fatalf("GetChildByID() = %v, %v", stored, err)
	}
	if stored.Visits != 1 || stored.Name != "Lucas" {
		t.Errorf("imported child = %+v", stored)
	}

	// New rows continue after the imported ids
	another := target.register(t, "second@example.com")
	if another.ID <= parent.ID {
		t.Errorf("new user id %d should follow imported id %d", another.ID, parent.ID)
	}
}

func TestBackupClearAllowsReimport(t *testing.T) {
	env := newTestEnv(t)
	parent := env.register(t, "parent@example.com")
	env.addChild(t, parent.ID, "Lucas")
	if _, _, err := env.auth.Login("parent@example.com", "password123"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	var buf bytes.Buffer
	if _, err := env.backup.ExportToWriter(&buf); err != nil {
		t.Fatalf("ExportToWriter() error = %v", err)
	}

	if err := env.backup.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if err := env.backup.ImportFromReader(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("ImportFromReader() after Clear error = %v", err)
	}

	children, err := env.child.ListChildren(parent.ID)
	if err != nil {
		t.Fatalf("ListChildren() error = %v", err)
	}
	if len(children) != 1 {
		t.Errorf("ListChildren() = %d children, want 1", len(children))
	}
}

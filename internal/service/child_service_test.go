package service

import (
	"errors"
	"testing"
	"time"

	"airjump/internal/models"
	"airjump/internal/validation"
)

func TestAddChildValidation(t *testing.T) {
	env := newTestEnv(t)
	parent := env.register(t, "parent@example.com")
	env.child.now = func() time.Time { return time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC) }

	tests := []struct {
		name    string
		input   ChildInput
		wantErr bool
	}{
		{"valid", ChildInput{Name: "Lucas", BirthDate: "2022-01-10", EmergencyContact: "Grandma 555-1234"}, false},
		{"missing name", ChildInput{Name: " ", BirthDate: "2022-01-10", EmergencyContact: "Grandma"}, true},
		{"bad date", ChildInput{Name: "Lucas", BirthDate: "10/01/2022", EmergencyContact: "Grandma"}, true},
		{"future birth", ChildInput{Name: "Lucas", BirthDate: "2025-07-01", EmergencyContact: "Grandma"}, true},
		{"adult", ChildInput{Name: "Lucas", BirthDate: "2007-05-31", EmergencyContact: "Grandma"}, true},
		{"missing contact", ChildInput{Name: "Lucas", BirthDate: "2022-01-10"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.child.AddChild(parent.ID, tt.input)
			if tt.wantErr {
				var verr validation.ValidationError
				if !errors.As(err, &verr) {
					t.Errorf("AddChild() error = %v, want ValidationError", err)
				}
				return
			}
			if err != nil {
				t.Errorf("AddChild() unexpected error = %v", err)
			}
		})
	}
}

func TestChildTagsAndOwnership(t *testing.T) {
	env := newTestEnv(t)
	parent := env.register(t, "parent@example.com")
	other := env.register(t, "other@example.com")
	env.child.now = func() time.Time { return time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC) }

	toddler, err := env.child.AddChild(parent.ID, ChildInput{
		Name: "Bia", BirthDate: "2022-06-02", EmergencyContact: "Dad", HasDisability: true,
	})
	if err != nil {
		t.Fatalf("AddChild() error = %v", err)
	}
	if toddler.Age != 2 {
		t.Errorf("Age = %d, want 2 (birthday tomorrow)", toddler.Age)
	}
	want := []string{models.TagDisability, models.TagUnderFive, models.TagMinor}
	if len(toddler.Tags) != len(want) {
		t.Fatalf("Tags = %v, want %v", toddler.Tags, want)
	}
	for i := range want {
		if toddler.Tags[i] != want[i] {
			t.Errorf("Tags[%d] = %s, want %s", i, toddler.Tags[i], want[i])
		}
	}

	if _, err := env.child.GetChild(other.ID, toddler.ID); !errors.Is(err, ErrChildNotFound) {
		t.Errorf("GetChild() by other parent error = %v, want ErrChildNotFound", err)
	}
	if _, err := env.child.UpdateChild(other.ID, toddler.ID, ChildInput{Name: "Hacked", BirthDate: "2022-06-02", EmergencyContact: "x"}); !errors.Is(err, ErrChildNotFound) {
		t.Errorf("UpdateChild() by other parent error = %v, want ErrChildNotFound", err)
	}
	if err := env.child.DeleteChild(other.ID, toddler.ID); !errors.Is(err, ErrChildNotFound) {
		t.Errorf("DeleteChild() by other parent error = %v, want ErrChildNotFound", err)
	}

	updated, err := env.child.UpdateChild(parent.ID, toddler.ID, ChildInput{
		Name: "Beatriz", BirthDate: "2019-01-01", EmergencyContact: "Dad",
	})
	if err != nil {
		t.Fatalf("UpdateChild() error = %v", err)
	}
	if updated.Name != "Beatriz" || updated.Age != 6 || len(updated.Tags) != 1 || updated.Tags[0] != models.TagMinor {
		t.Errorf("UpdateChild() = %+v", updated)
	}

	if _, err := env.child.AddChild(other.ID, ChildInput{Name: "Theo", BirthDate: "2018-02-02", EmergencyContact: "Mom"}); err != nil {
		t.Fatalf("AddChild() error = %v", err)
	}

	mine, err := env.child.ListChildren(parent.ID)
	if err != nil {
		t.Fatalf("ListChildren() error = %v", err)
	}
	if len(mine) != 1 || mine[0].ID != toddler.ID {
		t.Errorf("ListChildren() = %+v, want only the parent's child", mine)
	}

	all, err := env.child.ListAllChildren()
	if err != nil {
		t.Fatalf("ListAllChildren() error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("ListAllChildren() returned %d children, want 2", len(all))
	}
	for _, c := range all {
		if c.ParentEmail == "" {
			t.Errorf("child %d missing parent email", c.ID)
		}
	}

	if err := env.child.DeleteChild(parent.ID, toddler.ID); err != nil {
		t.Fatalf("DeleteChild() error = %v", err)
	}
	if _, err := env.child.GetChild(parent.ID, toddler.ID); !errors.Is(err, ErrChildNotFound) {
		t.Errorf("GetChild() after delete error = %v, want ErrChildNotFound", err)
	}
}

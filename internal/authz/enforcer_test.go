package authz

import "testing"

func TestAllowed(t *testing.T) {
	e, err := NewEnforcer()
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}

	tests := []struct {
		role   string
		object string
		action string
		want   bool
	}{
		{"moderator", ObjectListings, ActionModerate, true},
		{"moderator", ObjectMLOs, ActionModerate, true},
		{"moderator", ObjectClaims, ActionReset, false},
		{"moderator", ObjectListings, ActionDelete, false},
		{"moderator", ObjectListings, ActionEdit, true},
		{"user", ObjectListings, ActionEdit, false},
		{"admin", ObjectListings, ActionModerate, true},
		{"admin", ObjectClaims, ActionReset, true},
		{"user", ObjectListings, ActionModerate, false},
		{"", ObjectListings, ActionModerate, false},
	}

	for _, tt := range tests {
		got, err := e.Allowed("u1", tt.role, tt.object, tt.action)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("Allowed(%q, %s, %s) = %v, want %v", tt.role, tt.object, tt.action, got, tt.want)
		}
	}
}

func TestGrant(t *testing.T) {
	e, _ := NewEnforcer()
	if ok, _ := e.Allowed("u7", "user", ObjectMLOs, ActionModerate); ok {
		t.Fatal("plain user should not moderate")
	}
	if err := e.Grant("u7", "moderator"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := e.Allowed("u7", "user", ObjectMLOs, ActionModerate); !ok {
		t.Error("granted user should moderate")
	}
}

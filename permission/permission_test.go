package permission

import (
	"reflect"
	"testing"
)

func TestImplicationsTransitiveClosure(t *testing.T) {
	imp, err := NewImplications(map[string][]string{
		"owner":  {"admin"},
		"admin":  {"member", "editor"},
		"editor": {"member"},
	})
	if err != nil {
		t.Fatalf("new implications: %v", err)
	}

	if got := imp.Implied("owner"); !reflect.DeepEqual(got, []string{"admin", "editor", "member"}) {
		t.Fatalf("owner closure = %v", got)
	}
	if got := imp.Implied("member"); len(got) != 0 {
		t.Fatalf("member implies nothing, got %v", got)
	}

	got := imp.Expand([]string{"editor", "admin"})
	if !reflect.DeepEqual(got, []string{"editor", "admin", "member"}) {
		t.Fatalf("expand = %v", got)
	}
}

func TestImplicationsCycleTerminates(t *testing.T) {
	imp, err := NewImplications(map[string][]string{
		"a": {"b"},
		"b": {"a"},
	})
	if err != nil {
		t.Fatalf("new implications: %v", err)
	}
	if got := imp.Implied("a"); !reflect.DeepEqual(got, []string{"b"}) {
		t.Fatalf("a closure = %v", got)
	}
}

func TestNilImplicationsExpandIsIdentity(t *testing.T) {
	var imp *Implications
	if got := imp.Expand([]string{"x", "x", "y"}); !reflect.DeepEqual(got, []string{"x", "y"}) {
		t.Fatalf("expand = %v", got)
	}
}

func TestRoleManagerRejectsUnknownPermission(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register("users.read"); err != nil {
		t.Fatalf("register: %v", err)
	}
	reg.Freeze()
	if err := reg.Register("late"); err == nil {
		t.Fatal("expected frozen registry to reject")
	}

	rm := NewRoleManager(reg)
	if err := rm.RegisterRole("viewer", []string{"users.read", "users.read"}); err != nil {
		t.Fatalf("register role: %v", err)
	}
	if perms, _ := rm.Permissions("viewer"); !reflect.DeepEqual(perms, []string{"users.read"}) {
		t.Fatalf("expected de-duplicated permissions, got %v", perms)
	}
	if err := rm.RegisterRole("broken", []string{"users.delete"}); err == nil {
		t.Fatal("expected unknown permission to be rejected")
	}
	if err := rm.RegisterRole("viewer", nil); err == nil {
		t.Fatal("expected duplicate role to be rejected")
	}
}

func TestDefaultCatalogCompiles(t *testing.T) {
	compiled, err := DefaultCatalog().Compile()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if compiled.DefaultRole != RoleMember {
		t.Fatalf("default role = %q", compiled.DefaultRole)
	}
	perms, ok := compiled.Roles.Permissions(RoleAdmin)
	if !ok {
		t.Fatal("admin role missing")
	}
	want := []string{PermUsersBan, PermUsersManageRoles, PermUsersRead}
	if !reflect.DeepEqual(perms, want) {
		t.Fatalf("admin perms = %v, want %v", perms, want)
	}
	if got := compiled.Implications.Implied(RoleAdmin); !reflect.DeepEqual(got, []string{RoleMember}) {
		t.Fatalf("admin implies %v", got)
	}
}

func TestCatalogCompileValidation(t *testing.T) {
	c := DefaultCatalog()
	c.DefaultRole = "guest"
	if _, err := c.Compile(); err == nil {
		t.Fatal("expected undefined default role to fail")
	}

	c = DefaultCatalog()
	c.Implies = map[string][]string{RoleAdmin: {"ghost"}}
	if _, err := c.Compile(); err == nil {
		t.Fatal("expected undefined implied role to fail")
	}
}

func TestSetHelpers(t *testing.T) {
	if got := Union([]string{"b", "a"}, []string{"a", "c"}); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("union = %v", got)
	}
	if got := Union(); got == nil || len(got) != 0 {
		t.Fatalf("empty union must be non-nil empty, got %#v", got)
	}
	if got := Missing([]string{"a", "b"}, []string{"c", "a", "c", "0"}); !reflect.DeepEqual(got, []string{"0", "c"}) {
		t.Fatalf("missing = %v", got)
	}
	if got := Missing([]string{"a"}, nil); got != nil {
		t.Fatalf("missing of empty want = %v", got)
	}
	if got := Dedupe([]string{"b", "a", "b"}); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Fatalf("dedupe = %v", got)
	}
}

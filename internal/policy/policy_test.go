package policy

import "testing"

func TestOpenViewShape(t *testing.T) {
	owner := Actor{ID: "usr_owner"}
	stranger := Actor{ID: "usr_other"}
	admin := Actor{ID: "usr_admin", IsAdmin: true}

	if !OpenView.CanView(stranger, owner.ID) {
		t.Fatalf("open-view must allow any actor to view")
	}
	if !OpenView.CanCreate(stranger) {
		t.Fatalf("open-view must allow any actor to create")
	}
	if !OpenView.CanUpdate(owner, owner.ID) {
		t.Fatalf("owner must be allowed to update")
	}
	if OpenView.CanUpdate(stranger, owner.ID) {
		t.Fatalf("non-owner non-admin must be denied update")
	}
	if !OpenView.CanUpdate(admin, owner.ID) {
		t.Fatalf("admin override must apply to open-view resources")
	}
	if !OpenView.CanDelete(admin, owner.ID) {
		t.Fatalf("admin override must apply to delete")
	}
}

func TestStrictOwnerShape(t *testing.T) {
	owner := Actor{ID: "usr_owner"}
	stranger := Actor{ID: "usr_other"}
	admin := Actor{ID: "usr_admin", IsAdmin: true}

	if !StrictOwner.CanView(owner, owner.ID) {
		t.Fatalf("owner must be allowed to view")
	}
	if StrictOwner.CanView(stranger, owner.ID) {
		t.Fatalf("strict-owner must deny view to non-owners")
	}
	if StrictOwner.CanView(admin, owner.ID) {
		t.Fatalf("strict-owner must not honor the admin override on view")
	}
	if StrictOwner.CanUpdate(admin, owner.ID) {
		t.Fatalf("strict-owner must not honor the admin override on update")
	}
	if StrictOwner.CanDelete(admin, owner.ID) {
		t.Fatalf("strict-owner must not honor the admin override on delete")
	}
	if !StrictOwner.CanUpdate(owner, owner.ID) {
		t.Fatalf("owner must be allowed to update")
	}
	if !StrictOwner.CanCreate(stranger) {
		t.Fatalf("create is open to any authenticated actor")
	}
}

func TestCanCreateRequiresAuthenticatedActor(t *testing.T) {
	if OpenView.CanCreate(Actor{}) || StrictOwner.CanCreate(Actor{}) {
		t.Fatalf("anonymous actor must not pass create")
	}
}

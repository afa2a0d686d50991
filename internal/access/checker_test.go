package access

import (
	"context"
	"reflect"
	"testing"

	"serverbook/internal/testfixtures"
)

func TestAssignmentQueries(t *testing.T) {
	conn := testfixtures.OpenDB(t)
	ctx := context.Background()

	alice := testfixtures.CreateUser(t, conn)
	bob := testfixtures.CreateUser(t, conn)
	gpu1 := testfixtures.CreateServer(t, conn)
	gpu2 := testfixtures.CreateServer(t, conn)

	testfixtures.Assign(t, conn, alice.ID, gpu2.ID)
	testfixtures.Assign(t, conn, alice.ID, gpu1.ID)
	testfixtures.Assign(t, conn, bob.ID, gpu1.ID)

	chk := Checker{DB: conn}

	ok, err := chk.Assigned(ctx, bob.ID, gpu1.ID)
	if err != nil || !ok {
		t.Fatalf("expected bob assigned to gpu1, ok=%v err=%v", ok, err)
	}
	ok, err = chk.Assigned(ctx, bob.ID, gpu2.ID)
	if err != nil || ok {
		t.Fatalf("expected bob not assigned to gpu2, ok=%v err=%v", ok, err)
	}

	servers, err := chk.ServersAssignedTo(ctx, alice.ID)
	if err != nil {
		t.Fatalf("servers assigned: %v", err)
	}
	if want := []uint64{gpu1.ID, gpu2.ID}; !reflect.DeepEqual(servers, want) {
		t.Fatalf("expected servers %v, got %v", want, servers)
	}

	users, err := chk.UsersAssignedTo(ctx, gpu1.ID)
	if err != nil {
		t.Fatalf("users assigned: %v", err)
	}
	if want := []uint64{alice.ID, bob.ID}; !reflect.DeepEqual(users, want) {
		t.Fatalf("expected users %v, got %v", want, users)
	}

	users, err = chk.UsersAssignedTo(ctx, 9999)
	if err != nil {
		t.Fatalf("users assigned to unknown server: %v", err)
	}
	if len(users) != 0 {
		t.Fatalf("expected no users for unknown server, got %v", users)
	}
}

//go:build integration

package firestore_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	pconfig "github.com/fetchkids/api/internal/platform/config"
	pfirestore "github.com/fetchkids/api/internal/platform/firestore"
)

// emulatorEndpoint boots a Firestore emulator container and returns its
// host:port. Tests skip when docker is missing or the daemon is down.
func emulatorEndpoint(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("short mode")
	}
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skipf("docker not installed: %v", err)
	}
	if err := exec.Command("docker", "info").Run(); err != nil {
		t.Skipf("docker daemon unreachable: %v", err)
	}

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()

	out, err := exec.Command("docker", "run", "-d", "--rm",
		"-p", fmt.Sprintf("%d:8080", port),
		"gcr.io/google.com/cloudsdktool/cloud-sdk:emulators",
		"gcloud", "beta", "emulators", "firestore", "start",
		"--host-port=0.0.0.0:8080", "--quiet",
	).CombinedOutput()
	if err != nil {
		t.Fatalf("start emulator: %v: %s", err, out)
	}
	container := strings.TrimSpace(string(out))
	t.Cleanup(func() {
		_ = exec.Command("docker", "stop", container).Run()
	})

	endpoint := fmt.Sprintf("127.0.0.1:%d", port)
	deadline := time.Now().Add(30 * time.Second)
	for {
		conn, dialErr := net.DialTimeout("tcp", endpoint, time.Second)
		if dialErr == nil {
			conn.Close()
			return endpoint
		}
		if time.Now().After(deadline) {
			t.Fatalf("emulator never came up: %v", dialErr)
		}
		time.Sleep(200 * time.Millisecond)
	}
}

type draftRecord struct {
	Owner    string `firestore:"owner"`
	Revision int    `firestore:"revision"`
}

func TestProviderAndCollectionIntegration(t *testing.T) {
	endpoint := emulatorEndpoint(t)

	provider := pfirestore.NewProvider(pconfig.FirestoreConfig{
		ProjectID:    "test-project",
		EmulatorHost: endpoint,
	})
	t.Cleanup(func() {
		_ = provider.Close(context.Background())
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	drafts := pfirestore.NewCollection[draftRecord](provider, "drafts")

	if err := drafts.Set(ctx, "draft-1", draftRecord{Owner: "user-1", Revision: 1}); err != nil {
		t.Fatalf("set: %v", err)
	}

	doc, err := drafts.Get(ctx, "draft-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.ID != "draft-1" || doc.Data.Owner != "user-1" || doc.Data.Revision != 1 {
		t.Fatalf("unexpected document: %#v", doc)
	}

	if err := drafts.Update(ctx, "draft-1", []firestore.Update{{Path: "revision", Value: 2}}); err != nil {
		t.Fatalf("update: %v", err)
	}

	docs, err := drafts.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("owner", "==", "user-1")
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(docs) != 1 || docs[0].Data.Revision != 2 {
		t.Fatalf("unexpected query result: %#v", docs)
	}

	_, err = drafts.Get(ctx, "missing")
	var fe *pfirestore.Error
	if !errors.As(err, &fe) || !fe.IsNotFound() {
		t.Fatalf("want not-found classification, got %v", err)
	}

	if err := provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := drafts.Doc(ctx, "draft-1")
		if err != nil {
			return err
		}
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var rec draftRecord
		if err := snap.DataTo(&rec); err != nil {
			return err
		}
		rec.Revision++
		return tx.Set(ref, rec)
	}); err != nil {
		t.Fatalf("transaction: %v", err)
	}

	doc, err = drafts.Get(ctx, "draft-1")
	if err != nil {
		t.Fatalf("get after transaction: %v", err)
	}
	if doc.Data.Revision != 3 {
		t.Fatalf("revision = %d after transaction, want 3", doc.Data.Revision)
	}

	if err := drafts.Delete(ctx, "draft-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := drafts.Get(ctx, "draft-1"); err == nil {
		t.Fatal("document still readable after delete")
	}

	cancelled, stop := context.WithCancel(context.Background())
	stop()
	err = provider.RunTransaction(cancelled, func(context.Context, *firestore.Transaction) error {
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

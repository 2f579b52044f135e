// Package syncharness simulates several independent devices sharing one
// sync file, so convergence scenarios can run end to end against the
// real store, command service, and orchestrator rather than mocks.
// Grounded on the teacher's test/syncharness/harness.go multi-client
// push/pull harness, reduced to this module's single projected entity.
package syncharness

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/marcus/expensesync/internal/command"
	"github.com/marcus/expensesync/internal/model"
	"github.com/marcus/expensesync/internal/orchestrator"
	"github.com/marcus/expensesync/internal/remotesync"
	"github.com/marcus/expensesync/internal/store"
	"github.com/marcus/expensesync/internal/syncfile"
)

// Device is a single simulated replica: its own SQLite store and clock,
// sharing one sync file path with every other device in the Harness.
type Device struct {
	ID    string
	Store *store.Store
	Clock *model.FixedClock
	Cmd   *command.Service
	Query *command.QueryService
	Orch  *orchestrator.Orchestrator
}

// Harness wires up numDevices independent replicas against one shared,
// on-disk sync file rooted in a temp directory.
type Harness struct {
	t        *testing.T
	SyncFile string
	devices  map[string]*Device
	order    []string
}

// New creates a harness with numDevices devices, each with its own
// on-disk SQLite database, named device-A, device-B, ...
func New(t *testing.T, numDevices int) *Harness {
	t.Helper()
	dir := t.TempDir()

	h := &Harness{
		t:        t,
		SyncFile: filepath.Join(dir, "sync.json"),
		devices:  make(map[string]*Device),
	}

	for i := 0; i < numDevices; i++ {
		id := fmt.Sprintf("device-%c", rune('A'+i))
		st, err := store.Open(filepath.Join(dir, id+".db"))
		if err != nil {
			t.Fatalf("open store for %s: %v", id, err)
		}
		t.Cleanup(func() { st.Close() })

		clock := model.NewFixedClock(1000)
		sf := syncfile.New(h.SyncFile, false)
		proc := remotesync.New(st, nil)

		h.devices[id] = &Device{
			ID:    id,
			Store: st,
			Clock: clock,
			Cmd:   command.New(st, clock, id),
			Query: command.NewQueryService(st),
			Orch:  orchestrator.New(st, sf, proc, nil),
		}
		h.order = append(h.order, id)
	}

	return h
}

// Device returns the named device, failing the test if it is unknown.
func (h *Harness) Device(id string) *Device {
	h.t.Helper()
	d, ok := h.devices[id]
	if !ok {
		h.t.Fatalf("unknown device: %s", id)
	}
	return d
}

// Sync runs one full sync cycle for the named device.
func (h *Harness) Sync(id string) orchestrator.Result {
	h.t.Helper()
	d := h.Device(id)
	result, err := d.Orch.FullSync()
	if err != nil {
		h.t.Fatalf("sync %s: %v", id, err)
	}
	return result
}

// SyncAll runs one full sync cycle for every device, in harness order.
// Useful for convergence scenarios that don't care about interleaving.
func (h *Harness) SyncAll() {
	h.t.Helper()
	for _, id := range h.order {
		h.Sync(id)
	}
}

// AssertConverged fails the test if any two devices disagree about the
// active (non-deleted) expense set, compared by ExpenseID, Amount,
// Description and Category. UpdatedAt and Date are not compared.
func (h *Harness) AssertConverged() {
	h.t.Helper()
	if len(h.order) < 2 {
		return
	}

	var ref string
	var refDump string
	for i, id := range h.order {
		dump := h.dump(id)
		if i == 0 {
			ref, refDump = id, dump
			continue
		}
		if dump != refDump {
			h.t.Fatalf("DIVERGENCE between %s and %s:\n--- %s ---\n%s\n--- %s ---\n%s",
				ref, id, ref, refDump, id, dump)
		}
	}
}

// Diff returns a human-readable difference between two devices' active
// expense sets, or "(identical)" if they match.
func (h *Harness) Diff(idA, idB string) string {
	h.t.Helper()
	a, b := h.dump(idA), h.dump(idB)
	if a == b {
		return "(identical)"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("--- %s ---\n%s\n", idA, a))
	sb.WriteString(fmt.Sprintf("--- %s ---\n%s\n", idB, b))
	return sb.String()
}

func (h *Harness) dump(id string) string {
	d := h.Device(id)
	expenses, err := d.Query.ListActive()
	if err != nil {
		h.t.Fatalf("list active on %s: %v", id, err)
	}
	sort.Slice(expenses, func(i, j int) bool { return expenses[i].ExpenseID < expenses[j].ExpenseID })

	var lines []string
	for _, e := range expenses {
		desc := ""
		if e.Description != nil {
			desc = *e.Description
		}
		category := ""
		if e.Category != nil {
			category = *e.Category
		}
		lines = append(lines, fmt.Sprintf("%s|amount=%d|desc=%s|category=%s", e.ExpenseID, e.Amount, desc, category))
	}
	return strings.Join(lines, "\n")
}

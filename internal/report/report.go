package report

import (
	"sort"
)

// Report maps server -> database -> object label -> difference.
// Only objects with differences or failures are present.
type Report struct {
	servers map[string]map[string]map[string]Value
}

// New returns an empty report.
func New() *Report {
	return &Report{servers: make(map[string]map[string]map[string]Value)}
}

// Add records a difference for an object, replacing any previous entry.
func (r *Report) Add(server, database, object string, v Value) {
	dbs, ok := r.servers[server]
	if !ok {
		dbs = make(map[string]map[string]Value)
		r.servers[server] = dbs
	}
	objs, ok := dbs[database]
	if !ok {
		objs = make(map[string]Value)
		dbs[database] = objs
	}
	objs[object] = v
}

// Get returns the entry for an object.
func (r *Report) Get(server, database, object string) (Value, bool) {
	v, ok := r.servers[server][database][object]
	return v, ok
}

// Merge folds other into r at object granularity. Entries from other win on
// collision. Merging a partial report never removes existing objects.
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}
	for server, dbs := range other.servers {
		for db, objs := range dbs {
			for obj, v := range objs {
				r.Add(server, db, obj, v)
			}
		}
	}
}

// Empty reports whether no differences were recorded.
func (r *Report) Empty() bool {
	return len(r.servers) == 0
}

// Servers returns server keys in sorted order.
func (r *Report) Servers() []string {
	return sortedKeys(r.servers)
}

// Databases returns database keys for a server in sorted order.
func (r *Report) Databases(server string) []string {
	return sortedKeys(r.servers[server])
}

// Objects returns object labels for a server/database in sorted order.
func (r *Report) Objects(server, database string) []string {
	return sortedKeys(r.servers[server][database])
}

// Count returns the number of object entries.
func (r *Report) Count() int {
	n := 0
	for _, dbs := range r.servers {
		for _, objs := range dbs {
			n += len(objs)
		}
	}
	return n
}

// Entry is one flattened report row.
type Entry struct {
	Server   string
	Database string
	Object   string
	Value    Value
}

// Entries returns every entry in sorted server/database/object order.
func (r *Report) Entries() []Entry {
	var out []Entry
	for _, s := range r.Servers() {
		for _, d := range r.Databases(s) {
			for _, o := range r.Objects(s, d) {
				out = append(out, Entry{Server: s, Database: d, Object: o, Value: r.servers[s][d][o]})
			}
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

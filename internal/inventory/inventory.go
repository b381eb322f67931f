// Package inventory resolves the run inputs: which databases to visit and
// which objects to compare or sync. Both can come from the config file or
// from CSV sheets exported from a spreadsheet.
package inventory

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dbsmedya/schemasync/internal/config"
	"github.com/dbsmedya/schemasync/internal/types"
)

// Accounts is the base database followed by zero or more targets.
type Accounts struct {
	Base    config.ConnectionConfig
	Targets []config.ConnectionConfig
}

// LoadAccounts returns the accounts from cfg.AccountsFile when set, otherwise
// from the base/targets sections of cfg.
func LoadAccounts(cfg *config.Config) (*Accounts, error) {
	if cfg.AccountsFile == "" {
		return &Accounts{Base: cfg.Base, Targets: cfg.Targets}, nil
	}

	f, err := os.Open(cfg.AccountsFile)
	if err != nil {
		return nil, types.NewFailure(types.InputFailure, "", cfg.AccountsFile, err)
	}
	defer f.Close()

	accounts, err := ReadAccounts(f, cfg.Base)
	if err != nil {
		return nil, err
	}

	for i, conn := range append([]config.ConnectionConfig{accounts.Base}, accounts.Targets...) {
		conn := conn
		if err := cfg.ValidateConnection(fmt.Sprintf("accounts[%d]", i+1), &conn); err != nil {
			return nil, types.NewFailure(types.InputFailure, "", cfg.AccountsFile, err)
		}
	}
	return accounts, nil
}

// ReadAccounts parses an accounts sheet. The header names the columns
// (server, database, username, password and optionally driver, port); the
// first data row is the base and every following row is a target. Settings
// the sheet does not carry are taken from template.
func ReadAccounts(r io.Reader, template config.ConnectionConfig) (*Accounts, error) {
	records, err := readRecords(r)
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, types.Failuref(types.InputFailure, "", "accounts", "accounts sheet needs a header and at least one row for the base database")
	}

	index := make(map[string]int)
	for i, h := range records[0] {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"server", "database", "username", "password"} {
		if _, ok := index[required]; !ok {
			return nil, types.Failuref(types.InputFailure, "", "accounts", "accounts sheet is missing column %q", required)
		}
	}

	var conns []config.ConnectionConfig
	for n, row := range records[1:] {
		if blank(row) {
			continue
		}
		cell := func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		conn := template
		conn.Server = cell("server")
		conn.Database = cell("database")
		conn.Username = cell("username")
		conn.Password = cell("password")
		if d := cell("driver"); d != "" {
			conn.Driver = d
		}
		conn.Port = 0
		if p := cell("port"); p != "" {
			port, err := strconv.Atoi(p)
			if err != nil {
				return nil, types.Failuref(types.InputFailure, "", "accounts", "row %d: invalid port %q", n+2, p)
			}
			conn.Port = port
		}
		conns = append(conns, conn)
	}
	if len(conns) == 0 {
		return nil, types.Failuref(types.InputFailure, "", "accounts", "accounts sheet has no base database row")
	}
	return &Accounts{Base: conns[0], Targets: conns[1:]}, nil
}

// LoadObjects returns the names of kind to process, from the configured
// sheet when one is set. An empty list is an InputFailure.
func LoadObjects(cfg *config.Config, kind types.ObjectType) ([]string, error) {
	var (
		names []string
		path  string
	)
	switch kind {
	case types.Table:
		names, path = cfg.Objects.Tables, cfg.Objects.TablesFile
	case types.View:
		names, path = cfg.Objects.Views, cfg.Objects.ViewsFile
	case types.StoredProcedure:
		names, path = cfg.Objects.Procedures, cfg.Objects.ProceduresFile
	default:
		return nil, types.Failuref(types.InputFailure, "", "", "no object list for %s", kind)
	}

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, types.NewFailure(types.InputFailure, "", path, err)
		}
		defer f.Close()
		if names, err = ReadNames(f); err != nil {
			return nil, err
		}
	} else {
		names = compact(names)
	}

	if len(names) == 0 {
		return nil, types.Failuref(types.InputFailure, "", "", "at least one %s name is required", kind)
	}
	return names, nil
}

// ReadNames returns the first column of a sheet. The header row is skipped,
// as is a first value repeating the header. Blank cells are dropped; names
// are not deduplicated.
func ReadNames(r io.Reader) ([]string, error) {
	records, err := readRecords(r)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := strings.ToLower(strings.TrimSpace(first(records[0])))
	var names []string
	for _, row := range records[1:] {
		v := strings.TrimSpace(first(row))
		if v == "" {
			continue
		}
		if len(names) == 0 && strings.ToLower(v) == header {
			continue
		}
		names = append(names, v)
	}
	return names, nil
}

func readRecords(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return nil, types.Failuref(types.InputFailure, "", "", "malformed sheet at line %d: %v", perr.Line, perr.Err)
		}
		return nil, types.NewFailure(types.InputFailure, "", "", err)
	}
	// exported sheets often start with a UTF-8 BOM
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}
	return records, nil
}

func first(row []string) string {
	if len(row) == 0 {
		return ""
	}
	return row[0]
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func compact(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

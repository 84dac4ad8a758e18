package handlers

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/agentstation/fleetsync/pkg/constants"
	"github.com/agentstation/fleetsync/pkg/errors"
)

// readExisting returns the file content and whether the file exists.
func readExisting(path string) (string, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, errors.WrapIO("read", path, err)
	}
	return string(data), true, nil
}

// BackupPath returns the sibling backup file for path.
func BackupPath(path string) string {
	return path + constants.BackupSuffix
}

func backup(path, content string) error {
	return errors.WrapIO("backup", path, os.WriteFile(BackupPath(path), []byte(content), constants.FilePermissions))
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), constants.DirPermissions); err != nil {
		return errors.WrapIO("create", filepath.Dir(path), err)
	}
	return errors.WrapIO("write", path, os.WriteFile(path, []byte(content), constants.FilePermissions))
}

// reconcile compares desired with the current file and writes it unless the
// run is a dry run. A pre-existing file is backed up first when requested.
func reconcile(ac *ApplyContext, path, current string, exists bool, desired, message string) Result {
	if exists && current == desired {
		return Result{Status: StatusUnchanged}
	}
	status := StatusUpdated
	if !exists {
		status = StatusCreated
	}
	if ac.DryRun {
		return Result{Status: status, Message: message}
	}
	if ac.Backup && exists {
		if err := backup(path, current); err != nil {
			return errorResult("%v", err)
		}
	}
	if err := writeFile(path, desired); err != nil {
		return errorResult("%v", err)
	}
	return Result{Status: status, Message: message}
}

// unifiedDiff returns a unified diff between two versions of name, or ""
// when they are identical.
func unifiedDiff(current, desired, name string) string {
	if current == desired {
		return ""
	}
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(current),
		B:        difflib.SplitLines(desired),
		FromFile: "a/" + name,
		ToFile:   "b/" + name,
		Context:  3,
	})
	if err != nil {
		return err.Error()
	}
	return strings.TrimRight(text, "\n") + "\n"
}

// Package output provides the CLI's terminal output helpers, adapted
// from the teacher's success/error/warning/info conventions with the
// TUI-only color rendering dropped (SPEC_FULL.md "Dropped teacher
// dependencies": this module has no interactive terminal surface).
package output

import (
	"encoding/json"
	"fmt"

	"github.com/marcus/expensesync/internal/model"
)

// Success prints a success message.
func Success(format string, args ...interface{}) {
	fmt.Println(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func Error(format string, args ...interface{}) {
	fmt.Println("ERROR: " + fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func Warning(format string, args ...interface{}) {
	fmt.Println("Warning: " + fmt.Sprintf(format, args...))
}

// Info prints an informational message.
func Info(format string, args ...interface{}) {
	fmt.Println(fmt.Sprintf(format, args...))
}

// JSON prints v as indented JSON, for --json output modes.
func JSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// ExpenseOneLiner returns a concise single-line expense representation,
// e.g. `a1b2c3d4  $4.50  Food  Coffee`.
func ExpenseOneLiner(e model.Expense) string {
	desc := ""
	if e.Description != nil {
		desc = *e.Description
	}
	category := ""
	if e.Category != nil {
		category = *e.Category
	}
	return fmt.Sprintf("%s  %s  %s  %s", shortID(e.ExpenseID), FormatAmount(e.Amount), category, desc)
}

// FormatAmount renders an integer amount of minor currency units (cents)
// as a decimal string, e.g. 450 -> "$4.50".
func FormatAmount(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s$%d.%02d", sign, amount/100, amount%100)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

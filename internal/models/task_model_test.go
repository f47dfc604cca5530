package models

import "testing"

func TestTaskValidate(t *testing.T) {
	valid := Task{Title: "Milk", Priority: PriorityMedium, Status: StatusPending}

	tests := []struct {
		name   string
		mutate func(*Task)
		ok     bool
	}{
		{"valid pending", func(*Task) {}, true},
		{"valid completed", func(tk *Task) { tk.Status = StatusCompleted; tk.Done = true }, true},
		{"missing title", func(tk *Task) { tk.Title = "" }, false},
		{"unknown priority", func(tk *Task) { tk.Priority = "Urgent" }, false},
		{"unknown status", func(tk *Task) { tk.Status = "Archived" }, false},
		{"done without completed status", func(tk *Task) { tk.Done = true }, false},
		{"completed status without done", func(tk *Task) { tk.Status = StatusCompleted }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := valid
			tt.mutate(&task)
			err := task.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.ok && err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	for _, raw := range []string{"owner", "editor", "viewer"} {
		if _, err := ParseRole(raw); err != nil {
			t.Errorf("ParseRole(%q) = %v", raw, err)
		}
	}
	for _, raw := range []string{"admin", "Owner", ""} {
		if _, err := ParseRole(raw); err == nil {
			t.Errorf("ParseRole(%q) accepted, want error", raw)
		}
	}
}

package trigger

import (
	"testing"
	"time"

	"github.com/vk/cigrid/internal/config"
)

func workflowWith(on config.Triggers) *config.Workflow {
	return &config.Workflow{Name: "wf", On: on}
}

func TestPush_MatchesDeclaredBranches(t *testing.T) {
	w := workflowWith(config.Triggers{
		Push: &config.BranchFilter{Branches: []string{"main", "develop"}},
	})

	cases := []struct {
		branch string
		want   bool
	}{
		{"main", true},
		{"develop", true},
		{"feature/new-parser", false},
		{"maintenance", false},
	}
	for _, tc := range cases {
		got, err := Matches(w, Event{Type: Push, Branch: tc.branch})
		if err != nil {
			t.Fatalf("Matches(%q) returned error: %v", tc.branch, err)
		}
		if got != tc.want {
			t.Errorf("push to %q: got %v, want %v", tc.branch, got, tc.want)
		}
	}
}

func TestPush_UndeclaredTriggerNeverMatches(t *testing.T) {
	w := workflowWith(config.Triggers{Dispatch: true})

	got, err := Matches(w, Event{Type: Push, Branch: "main"})
	if err != nil {
		t.Fatalf("Matches returned error: %v", err)
	}
	if got {
		t.Error("push matched a workflow that declares no push trigger")
	}
}

func TestPush_EmptyFilterAdmitsEveryBranch(t *testing.T) {
	w := workflowWith(config.Triggers{Push: &config.BranchFilter{}})

	got, err := Matches(w, Event{Type: Push, Branch: "anything/at-all"})
	if err != nil {
		t.Fatalf("Matches returned error: %v", err)
	}
	if !got {
		t.Error("empty branch filter should admit every branch")
	}
}

func TestPush_GlobPatterns(t *testing.T) {
	w := workflowWith(config.Triggers{
		Push: &config.BranchFilter{Branches: []string{"release/*"}},
	})

	if got, _ := Matches(w, Event{Type: Push, Branch: "release/1.2"}); !got {
		t.Error("release/1.2 should match release/*")
	}
	if got, _ := Matches(w, Event{Type: Push, Branch: "main"}); got {
		t.Error("main should not match release/*")
	}
}

func TestPullRequest_MatchesTargetBranchOnly(t *testing.T) {
	w := workflowWith(config.Triggers{
		PullRequest: &config.BranchFilter{Branches: []string{"main", "develop"}},
	})

	if got, _ := Matches(w, Event{Type: PullRequest, Branch: "develop"}); !got {
		t.Error("pull request targeting develop should trigger")
	}
	if got, _ := Matches(w, Event{Type: PullRequest, Branch: "feature/x"}); got {
		t.Error("pull request targeting feature/x should not trigger")
	}
}

func TestSchedule_FiresAtMidnightUTC(t *testing.T) {
	w := workflowWith(config.Triggers{Schedules: []string{"0 0 * * *"}})

	midnight := time.Date(2026, 8, 24, 0, 0, 30, 0, time.UTC)
	got, err := Matches(w, Event{Type: Schedule, Time: midnight})
	if err != nil {
		t.Fatalf("Matches returned error: %v", err)
	}
	if !got {
		t.Error("daily schedule should fire within the midnight minute")
	}

	noon := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	if got, _ := Matches(w, Event{Type: Schedule, Time: noon}); got {
		t.Error("daily midnight schedule should not fire at noon")
	}
}

func TestSchedule_InvalidCronSurfacesError(t *testing.T) {
	w := workflowWith(config.Triggers{Schedules: []string{"not a cron"}})

	if _, err := Matches(w, Event{Type: Schedule, Time: time.Now()}); err == nil {
		t.Error("expected an error for an invalid cron expression")
	}
}

func TestDispatch_RequiresDeclaration(t *testing.T) {
	enabled := workflowWith(config.Triggers{Dispatch: true})
	disabled := workflowWith(config.Triggers{Push: &config.BranchFilter{}})

	if got, _ := Matches(enabled, Event{Type: Dispatch}); !got {
		t.Error("dispatch should trigger a workflow declaring it")
	}
	if got, _ := Matches(disabled, Event{Type: Dispatch}); got {
		t.Error("dispatch should not trigger a workflow without it")
	}
}

func TestParseEventType_RejectsUnknown(t *testing.T) {
	for _, valid := range []string{"push", "pull_request", "schedule", "dispatch"} {
		if _, err := ParseEventType(valid); err != nil {
			t.Errorf("ParseEventType(%q) returned error: %v", valid, err)
		}
	}
	if _, err := ParseEventType("merge_group"); err == nil {
		t.Error("expected an error for an unknown event type")
	}
}

package jobs

import (
	"errors"
	"testing"
)

func countingJob(n *int) Job {
	return JobFunc(func() error {
		*n++
		return nil
	})
}

func TestSchedulerTotalBudget(t *testing.T) {
	s := NewScheduler(PerFrame(2))
	s.BeginFrame()

	ran := 0
	results := []bool{}
	for i := 0; i < 3; i++ {
		ok, err := s.Execute(countingJob(&ran), JobTypeBuffer)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		results = append(results, ok)
	}

	if ran != 2 {
		t.Errorf("ran %d jobs, want 2", ran)
	}
	if !results[0] || !results[1] || results[2] {
		t.Errorf("accepted pattern %v, want [true true false]", results)
	}
	if s.Stats().Refused[JobTypeBuffer] != 1 {
		t.Errorf("refused = %d, want 1", s.Stats().Refused[JobTypeBuffer])
	}

	s.BeginFrame()
	if ok, _ := s.Execute(countingJob(&ran), JobTypeProgram); !ok {
		t.Error("budget should reset on BeginFrame")
	}
}

func TestSchedulerPerTypeBudget(t *testing.T) {
	var b Budget
	b.PerType[JobTypeTexture] = 1
	s := NewScheduler(b)
	s.BeginFrame()

	ran := 0
	if ok, _ := s.Execute(countingJob(&ran), JobTypeTexture); !ok {
		t.Fatal("first texture job should run")
	}
	if ok, _ := s.Execute(countingJob(&ran), JobTypeTexture); ok {
		t.Error("second texture job should be refused")
	}
	for i := 0; i < 5; i++ {
		if ok, _ := s.Execute(countingJob(&ran), JobTypeBuffer); !ok {
			t.Fatalf("buffer job %d refused without a buffer limit", i)
		}
	}
	if ran != 6 {
		t.Errorf("ran = %d, want 6", ran)
	}
}

func TestSchedulerFailureConsumesBudget(t *testing.T) {
	s := NewScheduler(PerFrame(1))
	s.BeginFrame()

	boom := errors.New("link failed")
	ok, err := s.Execute(JobFunc(func() error { return boom }), JobTypeProgram)
	if !ok || !errors.Is(err, boom) {
		t.Fatalf("got (%v, %v), want (true, boom)", ok, err)
	}
	if ok, _ := s.Execute(JobFunc(func() error { return nil }), JobTypeProgram); ok {
		t.Error("failed job should still consume the budget")
	}
	if s.Stats().Failed != 1 {
		t.Errorf("failed = %d, want 1", s.Stats().Failed)
	}
}

func TestUnlimitedAndImmediate(t *testing.T) {
	s := NewScheduler(Unlimited())
	s.BeginFrame()
	ran := 0
	for i := 0; i < 100; i++ {
		if ok, _ := s.Execute(countingJob(&ran), JobTypeTexture); !ok {
			t.Fatal("unlimited scheduler refused a job")
		}
	}
	if ok, err := (Immediate{}).Execute(countingJob(&ran), JobTypeBuffer); !ok || err != nil {
		t.Errorf("Immediate: got (%v, %v)", ok, err)
	}
	if ran != 101 {
		t.Errorf("ran = %d, want 101", ran)
	}
}

func TestJobTypeString(t *testing.T) {
	if JobTypeProgram.String() != "program" {
		t.Errorf("got %q", JobTypeProgram.String())
	}
	if JobType(9).String() != "JobType(9)" {
		t.Errorf("got %q", JobType(9).String())
	}
}

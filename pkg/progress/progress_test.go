package progress

import "testing"

func TestNone_EveryMethodIsANoop(t *testing.T) {
	bar := None()
	bar.Increment()
	bar.Add(5)
	bar.Finish()
}

func TestNew_IncrementAndFinishDoNotPanic(t *testing.T) {
	bar := New(3, "test")
	bar.Increment()
	bar.Add(2)
	bar.Finish()
}

package breaker

import "testing"

func TestLocalBufferRecordAndPeek(t *testing.T) {
	var b LocalBuffer
	b.RecordSuccess()
	b.RecordSuccess()
	b.RecordFailure()

	success, failure := b.Peek()
	if success != 2 || failure != 1 {
		t.Errorf("Peek() = (%d, %d), want (2, 1)", success, failure)
	}
	if b.IsEmpty() {
		t.Error("IsEmpty() = true, want false after recording")
	}
}

func TestLocalBufferDrainResetsToZero(t *testing.T) {
	var b LocalBuffer
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()

	success, failure := b.Drain()
	if success != 1 || failure != 2 {
		t.Errorf("Drain() = (%d, %d), want (1, 2)", success, failure)
	}
	if !b.IsEmpty() {
		t.Error("IsEmpty() = false after Drain, want true")
	}

	successAgain, failureAgain := b.Drain()
	if successAgain != 0 || failureAgain != 0 {
		t.Errorf("second Drain() = (%d, %d), want (0, 0)", successAgain, failureAgain)
	}
}

func TestLocalBufferConcurrentRecord(t *testing.T) {
	var b LocalBuffer
	done := make(chan struct{})
	const n = 1000

	go func() {
		for i := 0; i < n; i++ {
			b.RecordSuccess()
		}
		done <- struct{}{}
	}()
	go func() {
		for i := 0; i < n; i++ {
			b.RecordFailure()
		}
		done <- struct{}{}
	}()
	<-done
	<-done

	success, failure := b.Peek()
	if success != n || failure != n {
		t.Errorf("Peek() = (%d, %d), want (%d, %d)", success, failure, n, n)
	}
}

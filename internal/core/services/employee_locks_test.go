package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmployeeLocks_SerializesSameEmployee(t *testing.T) {
	locks := newEmployeeLocks()
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lock("emp-1")
			defer unlock()
			v := counter
			counter = v + 1
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Equal(t, 0, locks.size(), "released locks should be dropped")
}

func TestEmployeeLocks_IndependentEmployees(t *testing.T) {
	locks := newEmployeeLocks()
	unlockA := locks.lock("emp-a")

	// Must not block while emp-a is held.
	unlockB := locks.lock("emp-b")
	assert.Equal(t, 2, locks.size())

	unlockB()
	unlockA()
	assert.Equal(t, 0, locks.size())
}

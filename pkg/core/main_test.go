/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: main_test.go
Description: Test entry point for the core package. Fails the run if any test leaves
worker goroutines behind.
*/

package core_test

import (
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

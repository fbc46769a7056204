package logging

import (
	"testing"

	"go.viam.com/test"
)

func TestNewProducesUsableLogger(t *testing.T) {
	logger, err := New()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, logger, test.ShouldNotBeNil)
	logger.Infow("hello", "k", "v")
}

func TestNamedReturnsChild(t *testing.T) {
	logger, err := NewDevelopment()
	test.That(t, err, test.ShouldBeNil)

	child := logger.Named("mapper")
	test.That(t, child, test.ShouldNotBeNil)
	test.That(t, child, test.ShouldNotEqual, logger)
	child.Debugw("scoped")
}

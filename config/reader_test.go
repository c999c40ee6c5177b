package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"

	"github.com/derpvision/procam/logging"
)

func TestRead(t *testing.T) {
	logger := logging.NewTestLogger(t)
	t.Setenv("PROCAM_TEST_SERIAL", "004217")

	path := filepath.Join(t.TempDir(), "procam.json")
	err := os.WriteFile(path, []byte(`{
		"driver": {"type": "fake", "attributes": {"serials": ["${PROCAM_TEST_SERIAL}"]}},
		"camera": {"serial": "${PROCAM_TEST_SERIAL}", "log_level": "debug"}
	}`), 0o600)
	test.That(t, err, test.ShouldBeNil)

	cfg, err := Read(context.Background(), path, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.ConfigFilePath, test.ShouldEqual, path)
	test.That(t, cfg.Driver.Type, test.ShouldEqual, "fake")
	test.That(t, cfg.Driver.Attributes.StringSlice("serials"), test.ShouldResemble, []string{"004217"})
	test.That(t, cfg.Camera.String("serial"), test.ShouldEqual, "004217")

	_, err = Read(context.Background(), filepath.Join(t.TempDir(), "missing.json"), logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestFromReader(t *testing.T) {
	logger := logging.NewTestLogger(t)
	ctx := context.Background()

	cfg, err := FromReader(ctx, "inline", strings.NewReader(`{"driver": {"type": "mediadevices"}}`), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Camera, test.ShouldResemble, AttributeMap{})

	_, err = FromReader(ctx, "inline", strings.NewReader(`{"camera": {}}`), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "driver.type")

	_, err = FromReader(ctx, "inline", strings.NewReader(`{"driver": {"type": "fake"}, "cameras": []}`), logger)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = FromReader(ctx, "inline", strings.NewReader(`{`), logger)
	test.That(t, err, test.ShouldNotBeNil)
}

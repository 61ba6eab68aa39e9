package output

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		testsDir  string
		namespace string
		className string
		expected  Destination
	}{
		{
			name:      "simple",
			testsDir:  "tests",
			namespace: "feature",
			className: "Users",
			expected: Destination{
				Path:    filepath.Join("tests", "feature", "users_test.go"),
				Package: "feature",
				Suite:   "Users",
			},
		},
		{
			name:      "test suffix is not doubled",
			testsDir:  "tests",
			namespace: "feature",
			className: "UserApiTest",
			expected: Destination{
				Path:    filepath.Join("tests", "feature", "user_api_test.go"),
				Package: "feature",
				Suite:   "UserAPITest",
			},
		},
		{
			name:      "nested with backslashes",
			testsDir:  "tests",
			namespace: "Feature",
			className: `Admin\Billing\InvoicesSuite`,
			expected: Destination{
				Path:    filepath.Join("tests", "feature", "admin", "billing", "invoices_suite_test.go"),
				Package: "billing",
				Suite:   "InvoicesSuite",
			},
		},
		{
			name:      "nested namespace",
			testsDir:  "e2e",
			namespace: "api/v1",
			className: "pets",
			expected: Destination{
				Path:    filepath.Join("e2e", "api", "v1", "pets_test.go"),
				Package: "v1",
				Suite:   "Pets",
			},
		},
		{
			name:      "empty namespace",
			testsDir:  "contract-tests",
			namespace: "",
			className: "Pets",
			expected: Destination{
				Path:    filepath.Join("contract-tests", "pets_test.go"),
				Package: "contracttests",
				Suite:   "Pets",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.testsDir, tt.namespace, tt.className)
			require.NoError(t, err)
			require.Equal(t, tt.expected, got)
		})
	}
}

func TestResolveInvalid(t *testing.T) {
	_, err := Resolve("tests", "feature", " / ")
	require.Error(t, err)
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "feature", "users_test.go")

	require.NoError(t, Write(path, []byte("first"), Mode{}))
	require.True(t, Exists(path))

	err := Write(path, []byte("second"), Mode{})
	require.ErrorIs(t, err, ErrExists)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "first", string(data))

	require.NoError(t, Write(path, []byte("forced"), Mode{Force: true}))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "forced", string(data))

	require.NoError(t, Write(path, []byte("appended"), Mode{Append: true}))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "appended", string(data))
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	require.False(t, Exists(filepath.Join(dir, "missing.go")))
	require.False(t, Exists(dir))
}

package dataset

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp-forge/dirsync/pkg/hierarchy"
	"github.com/hashicorp-forge/dirsync/pkg/validate"
)

func TestLoadJSON(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/org.json", []byte(`{
		"departments": [
			{"externalId": "root", "departmentName": "Root", "active": true},
			{"externalId": "eng", "departmentName": "Engineering", "active": false, "parentExternalId": "root"}
		],
		"users": [
			{"externalId": "u1", "firstName": "A", "lastName": "B", "email": "a@b.co", "active": true,
			 "userTypes": [{"departmentExternalId": "eng", "userTypeId": "1"}]}
		]
	}`), 0o644))

	data, err := Load(fs, "/data/org.json")
	require.NoError(t, err)
	require.Len(t, data.Departments, 2)
	assert.Equal(t, "root", data.Departments[1].ParentExternalID)
	require.NotNil(t, data.Departments[1].Active)
	assert.False(t, *data.Departments[1].Active)
	assert.Equal(t, "eng", data.Users[0].UserTypes[0].DepartmentExternalID)
}

func TestLoadYAML(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "org.yml", []byte(`
departments:
  - externalId: root
    departmentName: Root
    active: true
`), 0o644))

	data, err := Load(fs, "org.yml")
	require.NoError(t, err)
	assert.Len(t, data.Departments, 1)
	assert.Empty(t, data.Users)
}

func TestLoadErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "typo.json", []byte(`{"departmnets": []}`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "typo.yaml", []byte("userz: []\n"), 0o644))

	tests := []struct {
		path    string
		wantErr string
	}{
		{path: "missing.json", wantErr: "error reading data file"},
		{path: "data.csv", wantErr: "unsupported data file extension"},
		{path: "typo.json", wantErr: "unknown field"},
		{path: "typo.yaml", wantErr: "not found"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			_, err := Load(fs, tt.path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSample(t *testing.T) {
	data := Sample()
	assert.Len(t, data.Departments, 8)
	assert.Len(t, data.Users, 5)

	assert.True(t, validate.SyncData(data).Valid())
	assert.True(t, hierarchy.Analyze(data.Departments).OK())

	res := hierarchy.OrderWithReport(data.Departments)
	assert.True(t, res.Complete())
	assert.Equal(t, "corp-root", res.Items[0].ExternalID)
}

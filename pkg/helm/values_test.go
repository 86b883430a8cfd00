package helm

import (
	"reflect"
	"testing"
)

func TestSetValue(t *testing.T) {
	type args struct {
		values   map[string]interface{}
		path     string
		newValue interface{}
	}
	tests := []struct {
		name    string
		args    args
		want    map[string]interface{}
		wantErr bool
	}{
		{
			name: "set value",
			args: args{
				values: map[string]interface{}{
					"tango_host": "databaseds:10000",
				},
				path:     "tango_host",
				newValue: "other:10000",
			},
			want: map[string]interface{}{
				"tango_host": "other:10000",
			},
			wantErr: false,
		},
		{
			name: "set value in nested map",
			args: args{
				values: map[string]interface{}{
					"image": map[string]interface{}{
						"tag": "1.2.3",
					},
				},
				path:     "image.tag",
				newValue: "1.2.4",
			},
			want: map[string]interface{}{
				"image": map[string]interface{}{
					"tag": "1.2.4",
				},
			},
			wantErr: false,
		},
		{
			name: "set value in empty map",
			args: args{
				values:   map[string]interface{}{},
				path:     "image",
				newValue: "new value",
			},
			want: map[string]interface{}{
				"image": "new value",
			},
			wantErr: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SetValue(tt.args.values, tt.args.path, tt.args.newValue)
			if (err != nil) != tt.wantErr {
				t.Errorf("SetValue() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			for k, v := range tt.want {
				if !reflect.DeepEqual(got[k], v) {
					t.Errorf("SetValue() got[%s] = %v, want %v", k, got[k], v)
				}
			}
		})
	}
}

package kubeutils

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/scheme"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
)

func testPod(name, namespace string, labels map[string]string) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels:    labels,
		},
	}
}

func TestFindPod(t *testing.T) {
	tests := []struct {
		name      string
		namespace string
		selector  string
		objects   []client.Object
		wantName  string
		wantErr   bool
	}{
		{
			name:      "matching pod",
			namespace: "ska-mid-cbf",
			selector:  "app=test-runner",
			objects: []client.Object{
				testPod("test-runner-0", "ska-mid-cbf", map[string]string{"app": "test-runner"}),
			},
			wantName: "test-runner-0",
		},
		{
			name:      "no matching pod yields unresolved target",
			namespace: "ska-mid-cbf",
			selector:  "app=test-runner",
			objects: []client.Object{
				testPod("databaseds-0", "ska-mid-cbf", map[string]string{"app": "databaseds"}),
			},
			wantName: "",
		},
		{
			name:      "pod in other namespace does not match",
			namespace: "ska-mid-cbf",
			selector:  "app=test-runner",
			objects: []client.Object{
				testPod("test-runner-0", "other", map[string]string{"app": "test-runner"}),
			},
			wantName: "",
		},
		{
			name:      "bad selector",
			namespace: "ska-mid-cbf",
			selector:  "app=test=runner",
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)

			cli := fake.NewClientBuilder().
				WithScheme(scheme.Scheme).
				WithObjects(tt.objects...).
				Build()

			target, err := FindPod(context.Background(), cli, tt.namespace, tt.selector)
			if tt.wantErr {
				req.Error(err)
				return
			}
			req.NoError(err)
			req.Equal(tt.namespace, target.Namespace)
			req.Equal(tt.selector, target.Selector)
			req.Equal(tt.wantName, target.Name)
			req.Equal(tt.wantName != "", target.Resolved())
		})
	}
}

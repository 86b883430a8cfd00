package kubeutils

import (
	"context"

	"github.com/pkg/errors"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/labels"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// PodTarget identifies the pod that test artifacts are staged into and the
// test command runs in. Name is empty when the selector matched no pod; that
// is a representable state, not an error, until something tries to use the
// target.
type PodTarget struct {
	Namespace string
	Selector  string
	Name      string
}

// Resolved reports whether the lookup found a pod.
func (t PodTarget) Resolved() bool {
	return t.Name != ""
}

// FindPod resolves the first pod matching the label selector in the
// namespace. A selector that matches nothing yields an unresolved target.
func FindPod(ctx context.Context, cli client.Client, namespace, selector string) (PodTarget, error) {
	target := PodTarget{Namespace: namespace, Selector: selector}

	sel, err := labels.Parse(selector)
	if err != nil {
		return target, errors.Wrapf(err, "parse selector %q", selector)
	}

	var pods corev1.PodList
	err = cli.List(ctx, &pods,
		client.InNamespace(namespace),
		client.MatchingLabelsSelector{Selector: sel},
	)
	if err != nil {
		return target, errors.Wrap(err, "list pods")
	}

	if len(pods.Items) > 0 {
		target.Name = pods.Items[0].Name
	}
	return target, nil
}

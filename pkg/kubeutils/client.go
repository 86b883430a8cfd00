// Package kubeutils constructs the kubernetes clients the orchestrator uses
// and resolves the pod targeted for test staging and execution. Cluster
// configuration follows the standard loading rules, so KUBECONFIG behaves as
// it does for kubectl.
package kubeutils

import (
	"fmt"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/scheme"
	restclient "k8s.io/client-go/rest"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/config"
)

var Scheme = scheme.Scheme

// KubeClient returns a new controller-runtime kubernetes client.
func KubeClient() (client.Client, error) {
	cfg, err := config.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("unable to process kubernetes config: %w", err)
	}
	return client.New(cfg, client.Options{Scheme: Scheme})
}

// RESTConfig returns the rest config used for pod exec calls.
func RESTConfig() (*restclient.Config, error) {
	cfg, err := config.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("unable to process kubernetes config: %w", err)
	}
	return cfg, nil
}

// GetClientset returns a client-go clientset.
func GetClientset() (*kubernetes.Clientset, error) {
	cfg, err := config.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("get kubernetes client config: %w", err)
	}
	return kubernetes.NewForConfig(cfg)
}

package seeds

import (
	"context"
	"fmt"
	"net"
	"strconv"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
)

// Kubernetes discovers contact points from the ready addresses of a headless
// Service's Endpoints, the way a StatefulSet-backed wide-column cluster
// typically exposes its seed pods. Grounded on the teacher's
// KubernetesOrchestrator.Initialize client-construction pattern (in-cluster
// config first, falling back to the local kubeconfig).
type Kubernetes struct {
	Namespace string
	Service   string
	Port      int

	clientset *kubernetes.Clientset
}

// Connect builds the clientset, trying in-cluster config first and falling
// back to the default kubeconfig for local development.
func (k *Kubernetes) Connect() error {
	cfg, err := rest.InClusterConfig()
	if err != nil {
		kubeconfig := clientcmd.NewDefaultClientConfigLoadingRules().GetDefaultFilename()
		if home := homedir.HomeDir(); home != "" && kubeconfig == "" {
			kubeconfig = home + "/.kube/config"
		}
		cfg, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
		if err != nil {
			return fmt.Errorf("k8s config: %w", err)
		}
	}

	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return fmt.Errorf("k8s clientset: %w", err)
	}
	k.clientset = clientset
	return nil
}

func (k *Kubernetes) Seeds(ctx context.Context) ([]string, error) {
	if k.clientset == nil {
		if err := k.Connect(); err != nil {
			return nil, err
		}
	}

	eps, err := k.clientset.CoreV1().Endpoints(k.Namespace).Get(ctx, k.Service, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("get endpoints %s/%s: %w", k.Namespace, k.Service, err)
	}

	port := k.Port
	if port == 0 {
		port = 9042
	}

	var out []string
	for _, subset := range eps.Subsets {
		for _, addr := range readyAddresses(subset) {
			out = append(out, net.JoinHostPort(addr, strconv.Itoa(port)))
		}
	}
	return out, nil
}

func readyAddresses(subset corev1.EndpointSubset) []string {
	out := make([]string, 0, len(subset.Addresses))
	for _, a := range subset.Addresses {
		out = append(out, a.IP)
	}
	return out
}

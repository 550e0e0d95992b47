// Package k8s provides node addresses of a Kubernetes pod.  The pod IP is announced as the private address and the
// IP of the host it is scheduled on as the public one.
package k8s

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	meta_v1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/annakv/routerclient"
	"github.com/annakv/routerclient/internal/util"
)

const (
	// ProviderName is the name of the k8s provider.
	ProviderName = "k8s"

	// ParamAPIQPS is the maximum amount of queries per second we allow to the Kubernetes API server.
	ParamAPIQPS = "kube-api-qps"
	// ParamAPIQPSBurst is the amount of queries per second we can burst above ParamAPIQPS.
	ParamAPIQPSBurst = "kube-api-burst"
	// ParamKubeconfigContext is the name of the context to use inside a provided ParamKubeconfigPath.
	ParamKubeconfigContext = "kubeconfig-context"
	// ParamKubeconfigPath is the path to the kubeconfig file to use for auth, or "" if using in-cluster auth.
	ParamKubeconfigPath = "kubeconfig-path"
	// ParamNamespace is the namespace of the pod.
	ParamNamespace = "namespace"
	// ParamPodName is the name of the pod whose addresses are announced, usually set from the downward API.
	ParamPodName = "pod-name"
	// ParamUserAgent is the user agent used when talking to the k8s API.
	ParamUserAgent = "user-agent"

	DefaultAPIQPS            = 5
	DefaultAPIQPSBurst       = 10
	DefaultKubeconfigContext = ""
	DefaultKubeconfigPath    = ""
	DefaultNamespace         = "default"
	DefaultUserAgent         = "anna-routerclient"
)

// ErrPodNotScheduled is returned while the pod has no addresses assigned.
var ErrPodNotScheduled = errors.New("pod has no addresses yet")

// Provider reads a pod's addresses from the API server.
type Provider struct {
	logger    logrus.FieldLogger
	clientset kubernetes.Interface
	namespace string
	podName   string
}

// NewProvider returns a Provider for the pod namespace/podName.
func NewProvider(logger logrus.FieldLogger, clientset kubernetes.Interface, namespace, podName string) *Provider {
	return &Provider{
		logger:    logger,
		clientset: clientset,
		namespace: namespace,
		podName:   podName,
	}
}

func (p *Provider) Name() string {
	return ProviderName
}

// NodeAddress returns the host IP and pod IP of the pod.
func (p *Provider) NodeAddress(ctx context.Context) (routerclient.NodeAddress, error) {
	pod, err := p.clientset.CoreV1().Pods(p.namespace).Get(ctx, p.podName, meta_v1.GetOptions{})
	if err != nil {
		return routerclient.NodeAddress{}, err
	}
	if pod.Status.PodIP == "" || pod.Status.HostIP == "" {
		return routerclient.NodeAddress{}, fmt.Errorf("%s/%s: %w", p.namespace, p.podName, ErrPodNotScheduled)
	}
	p.logger.WithFields(logrus.Fields{
		"pod":     p.namespace + "/" + p.podName,
		"pod_ip":  pod.Status.PodIP,
		"host_ip": pod.Status.HostIP,
	}).Debug("Discovered node address")
	return routerclient.NodeAddress{
		PublicIP:  pod.Status.HostIP,
		PrivateIP: pod.Status.PodIP,
	}, nil
}

// NewProviderFromViper returns a new k8s provider.
func NewProviderFromViper(v *viper.Viper, logger logrus.FieldLogger) (routerclient.NodeAddressProvider, error) {
	k := util.GetSubViper(v, "k8s")
	setViperDefaults(k)

	podName := k.GetString(ParamPodName)
	if podName == "" {
		return nil, errors.New(ParamPodName + " must be set")
	}

	clientset, err := createKubernetesClient(k.GetString(ParamUserAgent), k.GetString(ParamKubeconfigPath),
		k.GetString(ParamKubeconfigContext), k.GetFloat64(ParamAPIQPS), k.GetFloat64(ParamAPIQPSBurst))
	if err != nil {
		return nil, err
	}
	return NewProvider(logger, clientset, k.GetString(ParamNamespace), podName), nil
}

func createKubernetesClient(userAgent, kubeconfigPath, kubeconfigContext string, apiQPS, apiQPSBurst float64) (kubernetes.Interface, error) {
	var restConfig *rest.Config
	var err error
	if kubeconfigPath != "" {
		configOverrides := &clientcmd.ConfigOverrides{}
		if kubeconfigContext != "" {
			configOverrides.CurrentContext = kubeconfigContext
		}

		restConfig, err = clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
			&clientcmd.ClientConfigLoadingRules{ExplicitPath: kubeconfigPath},
			configOverrides).ClientConfig()
	} else {
		restConfig, err = rest.InClusterConfig()
	}
	if err != nil {
		return nil, err
	}

	restConfig.QPS = float32(apiQPS)
	restConfig.Burst = int(apiQPSBurst)
	restConfig.UserAgent = userAgent

	return kubernetes.NewForConfig(restConfig)
}

func setViperDefaults(v *viper.Viper) {
	v.SetDefault(ParamAPIQPS, DefaultAPIQPS)
	v.SetDefault(ParamAPIQPSBurst, DefaultAPIQPSBurst)
	v.SetDefault(ParamKubeconfigContext, DefaultKubeconfigContext)
	v.SetDefault(ParamKubeconfigPath, DefaultKubeconfigPath)
	v.SetDefault(ParamNamespace, DefaultNamespace)
	v.SetDefault(ParamPodName, "")
	v.SetDefault(ParamUserAgent, DefaultUserAgent)
}

/*
 * Copyright (C) 2023  Intergral GmbH
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package azure

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/Azure/azure-pipeline-go/pipeline"
	blob "github.com/Azure/azure-storage-blob-go/azblob"
	"github.com/Azure/go-autorest/autorest/adal"
	"github.com/Azure/go-autorest/autorest/azure/auth"
	"github.com/cristalhq/hedgedhttp"

	"github.com/intergral/tracequery/pkg/traceuri/instrumentation"
)

const (
	maxRetries = 1

	defaultEndpointSuffix = "blob.core.windows.net"
)

func getServiceURL(ctx context.Context, cfg *Config, hedge bool) (blob.ServiceURL, error) {
	retryOptions := blob.RetryOptions{
		MaxTries: int32(maxRetries),
		Policy:   blob.RetryPolicyExponential,
	}
	if deadline, ok := ctx.Deadline(); ok {
		retryOptions.TryTimeout = time.Until(deadline)
	}

	// add instrumentation
	transport := instrumentation.NewTransport(http.DefaultTransport.(*http.Transport).Clone())
	var stats *hedgedhttp.Stats
	var err error

	// hedge if desired (0 means disabled)
	if hedge && cfg.HedgeRequestsAt != 0 {
		transport, stats, err = hedgedhttp.NewRoundTripperAndStats(cfg.HedgeRequestsAt, cfg.HedgeRequestsUpTo, transport)
		if err != nil {
			return blob.ServiceURL{}, err
		}
		instrumentation.PublishHedgedMetrics(stats)
	}

	client := http.Client{Transport: transport}

	httpSender := pipeline.FactoryFunc(func(next pipeline.Policy, po *pipeline.PolicyOptions) pipeline.PolicyFunc {
		return func(ctx context.Context, request pipeline.Request) (pipeline.Response, error) {
			resp, err := client.Do(request.WithContext(ctx))
			return pipeline.NewHTTPResponse(resp), err
		}
	})

	opts := blob.PipelineOptions{
		Retry:      retryOptions,
		Telemetry:  blob.TelemetryOptions{Value: "TraceQuery"},
		HTTPSender: httpSender,
	}

	var p pipeline.Pipeline
	if cfg.UseManagedIdentity || cfg.UserAssignedID != "" {
		credential, err := getOAuthToken(cfg)
		if err != nil {
			return blob.ServiceURL{}, err
		}
		p = blob.NewPipeline(*credential, opts)
	} else {
		credential, err := blob.NewSharedKeyCredential(getStorageAccountName(cfg), getStorageAccountKey(cfg))
		if err != nil {
			return blob.ServiceURL{}, err
		}
		p = blob.NewPipeline(credential, opts)
	}

	u, err := url.Parse(fmt.Sprintf("https://%s.%s", getStorageAccountName(cfg), getEndpointSuffix(cfg)))

	// An endpoint that does not start with blob.core means Azurite is being
	// used, and the URL must follow the Azurite style instead.
	if !strings.HasPrefix(getEndpointSuffix(cfg), "blob.core") {
		u, err = url.Parse(fmt.Sprintf("http://%s/%s", getEndpointSuffix(cfg), getStorageAccountName(cfg)))
	}
	if err != nil {
		return blob.ServiceURL{}, err
	}

	return blob.NewServiceURL(*u, p), nil
}

func getOAuthToken(cfg *Config) (*blob.TokenCredential, error) {
	spt, err := getServicePrincipalToken(cfg)
	if err != nil {
		return nil, err
	}

	err = spt.Refresh()
	if err != nil {
		return nil, err
	}

	tc := blob.NewTokenCredential(spt.Token().AccessToken, func(tc blob.TokenCredential) time.Duration {
		err := spt.Refresh()
		if err != nil {
			// something went wrong, prevent the refresher from being triggered again
			return 0
		}

		tc.SetToken(spt.Token().AccessToken)

		// get the next token slightly before the current one expires
		return time.Until(spt.Token().Expires()) - 10*time.Second
	})

	return &tc, nil
}

func getServicePrincipalToken(cfg *Config) (*adal.ServicePrincipalToken, error) {
	resource := fmt.Sprintf("https://%s.%s", getStorageAccountName(cfg), getEndpointSuffix(cfg))

	msiConfig := auth.MSIConfig{
		Resource: resource,
	}
	if cfg.UserAssignedID != "" {
		msiConfig.ClientID = cfg.UserAssignedID
	}

	return msiConfig.ServicePrincipalToken()
}

func getStorageAccountName(cfg *Config) string {
	accountName := cfg.StorageAccountName
	if accountName == "" {
		accountName = os.Getenv("AZURE_STORAGE_ACCOUNT")
	}
	return accountName
}

func getStorageAccountKey(cfg *Config) string {
	accountKey := cfg.StorageAccountKey.String()
	if accountKey == "" {
		accountKey = os.Getenv("AZURE_STORAGE_KEY")
	}
	return accountKey
}

func getEndpointSuffix(cfg *Config) string {
	if cfg.Endpoint == "" {
		return defaultEndpointSuffix
	}
	return cfg.Endpoint
}

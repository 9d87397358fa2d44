package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// invokeEvent is the payload cmd/lambda accepts.
type invokeEvent struct {
	URL      string `json:"url,omitempty"`
	Filename string `json:"filename,omitempty"`
}

func (d *Deployer) getAccountInfo(ctx context.Context) error {
	result, err := d.stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return err
	}

	d.accountID = aws.ToString(result.Account)
	fmt.Printf("   Account ID: %s\n", d.accountID)
	fmt.Printf("   Region: %s\n", d.cfg.Region)
	return nil
}

func (d *Deployer) readZipFile() ([]byte, error) {
	return os.ReadFile(d.cfg.LambdaZipPath)
}

// runTimeoutMargin leaves the handler time to write its file and return
// before Lambda kills the invocation.
const runTimeoutMargin = 30

// runTimeoutSeconds is the scrape bound for a function timeout, never below
// one second.
func runTimeoutSeconds(lambdaTimeout int32) int32 {
	if lambdaTimeout-runTimeoutMargin >= 1 {
		return lambdaTimeout - runTimeoutMargin
	}
	if lambdaTimeout >= 1 {
		return lambdaTimeout
	}
	return 1
}

// functionEnvironment is the configuration the scraper reads inside Lambda.
func functionEnvironment(cfg *DeploymentConfig) map[string]string {
	return map[string]string{
		"MY_URL":                cfg.TargetURL,
		"LISTING_RUN_TIMEOUT":   fmt.Sprintf("%ds", runTimeoutSeconds(cfg.LambdaTimeout)),
		"LISTING_OUTPUT_FOLDER": "/tmp/data/raw",
	}
}

func (d *Deployer) createLambdaFunction(ctx context.Context) error {
	_, err := d.lambdaClient.GetFunction(ctx, &lambda.GetFunctionInput{
		FunctionName: aws.String(d.functionName),
	})
	if err == nil {
		return fmt.Errorf("lambda function %s already exists, use --update", d.functionName)
	}

	zipData, err := d.readZipFile()
	if err != nil {
		return fmt.Errorf("failed to read zip file: %w", err)
	}

	result, err := d.lambdaClient.CreateFunction(ctx, &lambda.CreateFunctionInput{
		FunctionName: aws.String(d.functionName),
		Runtime:      types.RuntimeProvidedal2,
		Role:         aws.String(d.roleARN),
		Handler:      aws.String("bootstrap"),
		Code: &types.FunctionCode{
			ZipFile: zipData,
		},
		Description: aws.String("Paginated job listing scraper"),
		MemorySize:  aws.Int32(d.cfg.LambdaMemorySize),
		Timeout:     aws.Int32(d.cfg.LambdaTimeout),
		EphemeralStorage: &types.EphemeralStorage{
			Size: aws.Int32(1024),
		},
		Environment: &types.Environment{
			Variables: functionEnvironment(d.cfg),
		},
		Tags: map[string]string{
			"Project":     d.cfg.ProjectName,
			"Environment": d.cfg.Environment,
			"ManagedBy":   "aws-sdk-go",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create Lambda function: %w", err)
	}

	d.lambdaARN = aws.ToString(result.FunctionArn)
	fmt.Printf("   Created Lambda function: %s\n", d.lambdaARN)

	return d.waitForLambdaActive(ctx)
}

func (d *Deployer) waitForLambdaActive(ctx context.Context) error {
	fmt.Println("   Waiting for Lambda function to be active")

	waiter := lambda.NewFunctionActiveWaiter(d.lambdaClient)
	err := waiter.Wait(ctx, &lambda.GetFunctionConfigurationInput{
		FunctionName: aws.String(d.functionName),
	}, 5*time.Minute)
	if err != nil {
		return fmt.Errorf("lambda function did not become active: %w", err)
	}
	return nil
}

func (d *Deployer) waitForLambdaUpdated(ctx context.Context) error {
	waiter := lambda.NewFunctionUpdatedWaiter(d.lambdaClient)
	err := waiter.Wait(ctx, &lambda.GetFunctionConfigurationInput{
		FunctionName: aws.String(d.functionName),
	}, 5*time.Minute)
	if err != nil {
		return fmt.Errorf("lambda function update did not finish: %w", err)
	}
	return nil
}

func (d *Deployer) updateEnvironment(ctx context.Context) error {
	_, err := d.lambdaClient.UpdateFunctionConfiguration(ctx, &lambda.UpdateFunctionConfigurationInput{
		FunctionName: aws.String(d.functionName),
		Environment: &types.Environment{
			Variables: functionEnvironment(d.cfg),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update Lambda environment: %w", err)
	}
	fmt.Printf("   Target URL set to %s\n", d.cfg.TargetURL)
	return nil
}

// Invoke runs the function synchronously. An empty url uses the one the
// function was deployed with.
func (d *Deployer) Invoke(ctx context.Context, url string) ([]byte, error) {
	payload, err := json.Marshal(invokeEvent{URL: strings.TrimSpace(url)})
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	out, err := d.lambdaClient.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(d.functionName),
		InvocationType: types.InvocationTypeRequestResponse,
		Payload:        payload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke Lambda function: %w", err)
	}
	if out.FunctionError != nil {
		return nil, fmt.Errorf("function error %s: %s", aws.ToString(out.FunctionError), out.Payload)
	}
	return out.Payload, nil
}

func (d *Deployer) deleteLambdaFunction(ctx context.Context) error {
	_, err := d.lambdaClient.DeleteFunction(ctx, &lambda.DeleteFunctionInput{
		FunctionName: aws.String(d.functionName),
	})
	if err != nil {
		return fmt.Errorf("failed to delete Lambda function: %w", err)
	}

	fmt.Printf("   Deleted Lambda function: %s\n", d.functionName)
	return nil
}

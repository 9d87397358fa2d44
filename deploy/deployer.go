package main

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

type Deployer struct {
	cfg          *DeploymentConfig
	lambdaClient *lambda.Client
	iamClient    *iam.Client
	stsClient    *sts.Client

	functionName string
	roleName     string

	accountID string
	lambdaARN string
	roleARN   string
}

func NewDeployer(awsCfg aws.Config, cfg *DeploymentConfig) *Deployer {
	return &Deployer{
		cfg:          cfg,
		lambdaClient: lambda.NewFromConfig(awsCfg),
		iamClient:    iam.NewFromConfig(awsCfg),
		stsClient:    sts.NewFromConfig(awsCfg),

		functionName: functionName(cfg),
		roleName:     roleName(cfg),
	}
}

func functionName(cfg *DeploymentConfig) string {
	return fmt.Sprintf("%s-%s", cfg.ProjectName, cfg.Environment)
}

func roleName(cfg *DeploymentConfig) string {
	return fmt.Sprintf("%s-lambda-role-%s", cfg.ProjectName, cfg.Environment)
}

// Deploy creates the execution role and the function.
func (d *Deployer) Deploy(ctx context.Context) error {
	log.Println("getting account information...")
	if err := d.getAccountInfo(ctx); err != nil {
		return fmt.Errorf("failed to get account info: %w", err)
	}

	log.Println("creating IAM role...")
	if err := d.createIAMRole(ctx); err != nil {
		return fmt.Errorf("failed to create IAM role: %w", err)
	}

	log.Println("creating Lambda function...")
	if err := d.createLambdaFunction(ctx); err != nil {
		return fmt.Errorf("failed to create Lambda function: %w", err)
	}

	d.printDeploymentInfo()
	return nil
}

// UpdateLambda uploads new code and, when set, a new target url.
func (d *Deployer) UpdateLambda(ctx context.Context) error {
	zipData, err := d.readZipFile()
	if err != nil {
		return fmt.Errorf("failed to read zip file: %w", err)
	}

	_, err = d.lambdaClient.UpdateFunctionCode(ctx, &lambda.UpdateFunctionCodeInput{
		FunctionName: aws.String(d.functionName),
		ZipFile:      zipData,
	})
	if err != nil {
		return fmt.Errorf("failed to update Lambda function code: %w", err)
	}

	if d.cfg.TargetURL == "" {
		return nil
	}
	if err := d.waitForLambdaUpdated(ctx); err != nil {
		return err
	}
	return d.updateEnvironment(ctx)
}

// Destroy removes all created resources. Failures are logged and the next
// resource is still attempted.
func (d *Deployer) Destroy(ctx context.Context) error {
	log.Println("deleting Lambda function...")
	if err := d.deleteLambdaFunction(ctx); err != nil {
		log.Printf("warning: failed to delete Lambda function: %v", err)
	}

	log.Println("deleting IAM role...")
	if err := d.deleteIAMRole(ctx); err != nil {
		log.Printf("warning: failed to delete IAM role: %v", err)
	}

	return nil
}

func (d *Deployer) printDeploymentInfo() {
	log.Println("deployment summary:")
	log.Printf("   Lambda Function: %s", d.functionName)
	log.Printf("   Lambda ARN: %s", d.lambdaARN)
	log.Printf("   IAM Role: %s", d.roleName)
	log.Printf("   Target URL: %s", d.cfg.TargetURL)
	log.Println("usage:")
	log.Println("   go run . --invoke")
	log.Printf("   aws lambda invoke --function-name %s --payload '{\"url\":\"...\"}' out.json", d.functionName)
}

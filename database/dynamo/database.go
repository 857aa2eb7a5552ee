package dynamo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sagarc03/shelf"
	"github.com/sagarc03/shelf/internal/awsconfig"
)

// API is the subset of the DynamoDB client used by this package.
type API interface {
	dynamodb.DescribeTableAPIClient
	dynamodb.QueryAPIClient
	dynamodb.ScanAPIClient
	ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Config selects the table and how to reach it.
type Config struct {
	Table string
	// OwnerIndex names a global secondary index on (user_id, created_at).
	// When empty, List scans the table with a filter.
	OwnerIndex string
	// Endpoint overrides the service endpoint, e.g. DynamoDB Local.
	Endpoint string
	AWS      awsconfig.Options
	// CreateTimeout bounds how long Migrate waits for a new table.
	CreateTimeout time.Duration
}

var validTableName = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,255}$`)

type database struct {
	client        API
	table         string
	ownerIndex    string
	createTimeout time.Duration
}

// Connect builds a DynamoDB client from the default AWS credential chain.
func Connect(ctx context.Context, cfg Config) (*database, error) {
	awsCfg, err := awsconfig.Load(ctx, cfg.AWS)
	if err != nil {
		return nil, fmt.Errorf("connect dynamodb: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return New(client, cfg)
}

// New wraps an existing client.
func New(client API, cfg Config) (*database, error) {
	if !validTableName.MatchString(cfg.Table) {
		return nil, fmt.Errorf("new dynamo: invalid table name: %q", cfg.Table)
	}

	if cfg.OwnerIndex != "" && !validTableName.MatchString(cfg.OwnerIndex) {
		return nil, fmt.Errorf("new dynamo: invalid index name: %q", cfg.OwnerIndex)
	}

	timeout := cfg.CreateTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	return &database{
		client:        client,
		table:         cfg.Table,
		ownerIndex:    cfg.OwnerIndex,
		createTimeout: timeout,
	}, nil
}

// Ping verifies the service is reachable with the configured credentials.
func (d *database) Ping(ctx context.Context) error {
	_, err := d.client.ListTables(ctx, &dynamodb.ListTablesInput{Limit: aws.Int32(1)})
	if err != nil {
		return fmt.Errorf("ping dynamodb: %w: %w", shelf.ErrStorageUnavailable, err)
	}
	return nil
}

// Migrate creates the table (on-demand billing) and the owner index when the
// table does not exist, then waits until it is active.
func (d *database) Migrate(ctx context.Context) error {
	_, err := d.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(d.table)})
	if err == nil {
		return nil
	}

	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return fmt.Errorf("migrate: describe table: %w", err)
	}

	if _, err := d.client.CreateTable(ctx, d.createTableInput()); err != nil {
		return fmt.Errorf("migrate: create table %s: %w", d.table, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(d.client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(d.table)}, d.createTimeout); err != nil {
		return fmt.Errorf("migrate: wait for table %s: %w", d.table, err)
	}

	return nil
}

func (d *database) createTableInput() *dynamodb.CreateTableInput {
	in := &dynamodb.CreateTableInput{
		TableName:   aws.String(d.table),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(attrID), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(attrID), KeyType: types.KeyTypeHash},
		},
	}

	if d.ownerIndex != "" {
		in.AttributeDefinitions = append(in.AttributeDefinitions,
			types.AttributeDefinition{AttributeName: aws.String(attrOwner), AttributeType: types.ScalarAttributeTypeS},
			types.AttributeDefinition{AttributeName: aws.String(attrCreatedAt), AttributeType: types.ScalarAttributeTypeS},
		)
		in.GlobalSecondaryIndexes = []types.GlobalSecondaryIndex{{
			IndexName: aws.String(d.ownerIndex),
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String(attrOwner), KeyType: types.KeyTypeHash},
				{AttributeName: aws.String(attrCreatedAt), KeyType: types.KeyTypeRange},
			},
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
		}}
	}

	return in
}

// Validate checks that the table is keyed by id alone and that the owner
// index exists when one is configured.
func (d *database) Validate(ctx context.Context) error {
	out, err := d.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(d.table)})
	if err != nil {
		return fmt.Errorf("validate table %s: %w", d.table, err)
	}

	keys := out.Table.KeySchema
	if len(keys) != 1 || aws.ToString(keys[0].AttributeName) != attrID || keys[0].KeyType != types.KeyTypeHash {
		return fmt.Errorf("validate table %s: key schema must be a single hash key %q", d.table, attrID)
	}

	if d.ownerIndex == "" {
		return nil
	}

	for _, gsi := range out.Table.GlobalSecondaryIndexes {
		if aws.ToString(gsi.IndexName) != d.ownerIndex {
			continue
		}
		if len(gsi.KeySchema) == 0 || aws.ToString(gsi.KeySchema[0].AttributeName) != attrOwner {
			return fmt.Errorf("validate table %s: index %s must be keyed by %s", d.table, d.ownerIndex, attrOwner)
		}
		return nil
	}

	return fmt.Errorf("validate table %s: index %s does not exist", d.table, d.ownerIndex)
}

// GetRepo returns the ItemRepo backed by this table.
func (d *database) GetRepo() shelf.ItemRepo {
	return &repo{client: d.client, table: d.table, ownerIndex: d.ownerIndex}
}

// Close is a no-op; the SDK client holds no resources that need releasing.
func (d *database) Close() error {
	return nil
}

package bindings

import (
	"errors"
	"fmt"
	"strings"
)

const (
	ElasticsearchType = "elasticsearch"
	KafkaType         = "kafka"
	MongoDBType       = "mongodb"
	MySQLType         = "mysql"
	PostgreSQLType    = "postgresql"
	RabbitMQType      = "rabbitmq"
	RedisType         = "redis"
	VaultType         = "vault"
)

var (
	ErrUnsupportedAuthenticationMethod = errors.New("unsupported authentication method")
)

// TypedProcessor is a Processor restricted to one binding type. The type can be switched off through
// Config.DisabledTypes or a false TypeEnableProperty.
type TypedProcessor interface {
	Processor
	BindingType() string
}

// propertyMapper copies secret entries of a binding into the output properties.
type propertyMapper struct {
	source map[string]string
	target map[string]string
}

func newPropertyMapper(binding Binding, properties map[string]string) propertyMapper {
	return propertyMapper{
		source: binding.Secret(),
		target: properties,
	}
}

func (m propertyMapper) put(from string, to string) {
	if value, ok := m.source[from]; ok {
		m.target[to] = value
	}
}

// values returns the entries for all keys, or false if any of them is missing.
func (m propertyMapper) values(keys ...string) ([]string, bool) {
	result := make([]string, 0, len(keys))
	for _, key := range keys {
		value, ok := m.source[key]
		if !ok {
			return nil, false
		}
		result = append(result, value)
	}
	return result, true
}

type ElasticsearchProcessor struct{}

func (p *ElasticsearchProcessor) BindingType() string {
	return ElasticsearchType
}

func (p *ElasticsearchProcessor) Process(binding Binding, properties map[string]string) error {
	if !binding.IsType(ElasticsearchType) {
		return nil
	}
	m := newPropertyMapper(binding, properties)
	m.put("endpoints", "spring.elasticsearch.uris")
	m.put("username", "spring.elasticsearch.username")
	m.put("password", "spring.elasticsearch.password")
	m.put("path-prefix", "spring.elasticsearch.path-prefix")
	return nil
}

type KafkaProcessor struct{}

func (p *KafkaProcessor) BindingType() string {
	return KafkaType
}

func (p *KafkaProcessor) Process(binding Binding, properties map[string]string) error {
	if !binding.IsType(KafkaType) {
		return nil
	}
	m := newPropertyMapper(binding, properties)
	m.put("bootstrap-servers", "spring.kafka.bootstrap-servers")
	m.put("consumer.bootstrap-servers", "spring.kafka.consumer.bootstrap-servers")
	m.put("producer.bootstrap-servers", "spring.kafka.producer.bootstrap-servers")
	m.put("streams.bootstrap-servers", "spring.kafka.streams.bootstrap-servers")
	return nil
}

type MongoDBProcessor struct{}

func (p *MongoDBProcessor) BindingType() string {
	return MongoDBType
}

func (p *MongoDBProcessor) Process(binding Binding, properties map[string]string) error {
	if !binding.IsType(MongoDBType) {
		return nil
	}
	m := newPropertyMapper(binding, properties)
	m.put("authentication-database", "spring.data.mongodb.authentication-database")
	m.put("database", "spring.data.mongodb.database")
	m.put("grid-fs-database", "spring.data.mongodb.gridfs.database")
	m.put("host", "spring.data.mongodb.host")
	m.put("password", "spring.data.mongodb.password")
	m.put("port", "spring.data.mongodb.port")
	m.put("uri", "spring.data.mongodb.uri")
	m.put("username", "spring.data.mongodb.username")
	return nil
}

type MySQLProcessor struct{}

func (p *MySQLProcessor) BindingType() string {
	return MySQLType
}

func (p *MySQLProcessor) Process(binding Binding, properties map[string]string) error {
	if !binding.IsType(MySQLType) {
		return nil
	}
	putDatasource(newPropertyMapper(binding, properties), "mysql", "org.mariadb.jdbc.Driver")
	return nil
}

type PostgreSQLProcessor struct{}

func (p *PostgreSQLProcessor) BindingType() string {
	return PostgreSQLType
}

func (p *PostgreSQLProcessor) Process(binding Binding, properties map[string]string) error {
	if !binding.IsType(PostgreSQLType) {
		return nil
	}
	putDatasource(newPropertyMapper(binding, properties), "postgresql", "org.postgresql.Driver")
	return nil
}

// putDatasource maps the common relational database entries onto datasource and r2dbc properties.
// An explicit jdbc-url wins over one assembled from host, port and database.
func putDatasource(m propertyMapper, scheme string, driverClassName string) {
	m.target["spring.datasource.driver-class-name"] = driverClassName
	m.put("username", "spring.datasource.username")
	m.put("password", "spring.datasource.password")
	m.put("username", "spring.r2dbc.username")
	m.put("password", "spring.r2dbc.password")

	location := ""
	if parts, ok := m.values("host", "port", "database"); ok {
		location = fmt.Sprintf("%s:%s/%s", parts[0], parts[1], parts[2])
		if sslMode, ok := m.source["sslmode"]; ok {
			location += "?sslmode=" + sslMode
		}
	}
	if jdbcURL, ok := m.source["jdbc-url"]; ok {
		m.target["spring.datasource.url"] = jdbcURL
	} else if location != "" {
		m.target["spring.datasource.url"] = fmt.Sprintf("jdbc:%s://%s", scheme, location)
	}
	if r2dbcURL, ok := m.source["r2dbc-url"]; ok {
		m.target["spring.r2dbc.url"] = r2dbcURL
	} else if location != "" {
		m.target["spring.r2dbc.url"] = fmt.Sprintf("r2dbc:%s://%s", scheme, location)
	}
}

type RabbitMQProcessor struct{}

func (p *RabbitMQProcessor) BindingType() string {
	return RabbitMQType
}

func (p *RabbitMQProcessor) Process(binding Binding, properties map[string]string) error {
	if !binding.IsType(RabbitMQType) {
		return nil
	}
	m := newPropertyMapper(binding, properties)
	m.put("addresses", "spring.rabbitmq.addresses")
	m.put("host", "spring.rabbitmq.host")
	m.put("password", "spring.rabbitmq.password")
	m.put("port", "spring.rabbitmq.port")
	m.put("username", "spring.rabbitmq.username")
	m.put("virtual-host", "spring.rabbitmq.virtual-host")
	return nil
}

type RedisProcessor struct{}

func (p *RedisProcessor) BindingType() string {
	return RedisType
}

func (p *RedisProcessor) Process(binding Binding, properties map[string]string) error {
	if !binding.IsType(RedisType) {
		return nil
	}
	m := newPropertyMapper(binding, properties)
	m.put("client-name", "spring.redis.client-name")
	m.put("cluster.max-redirects", "spring.redis.cluster.max-redirects")
	m.put("cluster.nodes", "spring.redis.cluster.nodes")
	m.put("database", "spring.redis.database")
	m.put("host", "spring.redis.host")
	m.put("password", "spring.redis.password")
	m.put("port", "spring.redis.port")
	m.put("sentinel.master", "spring.redis.sentinel.master")
	m.put("sentinel.nodes", "spring.redis.sentinel.nodes")
	m.put("ssl", "spring.redis.ssl")
	m.put("url", "spring.redis.url")
	return nil
}

type VaultProcessor struct{}

func (p *VaultProcessor) BindingType() string {
	return VaultType
}

func (p *VaultProcessor) Process(binding Binding, properties map[string]string) error {
	if !binding.IsType(VaultType) {
		return nil
	}
	m := newPropertyMapper(binding, properties)
	m.put("uri", "spring.cloud.vault.uri")
	m.put("namespace", "spring.cloud.vault.namespace")

	method, ok := m.source["authentication-method"]
	if !ok {
		return nil
	}
	switch strings.ToLower(method) {
	case "token":
		properties["spring.cloud.vault.authentication"] = "TOKEN"
		m.put("token", "spring.cloud.vault.token")
	case "kubernetes":
		properties["spring.cloud.vault.authentication"] = "KUBERNETES"
		m.put("role", "spring.cloud.vault.kubernetes.role")
		m.put("kubernetes-path", "spring.cloud.vault.kubernetes.kubernetes-path")
	case "approle":
		properties["spring.cloud.vault.authentication"] = "APPROLE"
		m.put("role-id", "spring.cloud.vault.app-role.role-id")
		m.put("secret-id", "spring.cloud.vault.app-role.secret-id")
		m.put("app-role-path", "spring.cloud.vault.app-role.app-role-path")
	default:
		return fmt.Errorf("%w %q for binding %s", ErrUnsupportedAuthenticationMethod, method, binding.Name())
	}
	return nil
}

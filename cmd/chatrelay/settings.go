package main

import "strings"

type Settings struct {
	Port           int    `env:"PORT,default=8000"`
	BasePath       string `env:"BASE_PATH,default=/chatrelay"`
	JWTSecret      string `env:"JWT_SECRET,required=true"`
	MongoDBURI     string `env:"MONGODB_URI,default=mongodb://localhost:27017"`
	LogEncoding    string `env:"LOG_ENCODING,default=console"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS,default=*"`
}

func (s Settings) Origins() []string {
	return strings.Split(s.AllowedOrigins, ",")
}

package testyaml

const ShopAPIYAML = `
apiVersion: apps/v1
kind: Deployment
metadata:
  name: shop-api
  labels:
    app: shop-api
spec:
  replicas: 2
  selector:
    matchLabels:
      app: shop-api
  template:
    metadata:
      labels:
        app: shop-api
    spec:
      containers:
      - name: api
        image: gcr.io/acme/shop-api
        ports:
        - containerPort: 8080
---
apiVersion: v1
kind: Service
metadata:
  name: shop-api
  labels:
    app: shop-api
spec:
  ports:
  - port: 8080
    targetPort: 8080
  selector:
    app: shop-api
`

const ShopAPITaggedYAML = `
apiVersion: apps/v1
kind: Deployment
metadata:
  name: shop-api
  labels:
    app: shop-api
spec:
  selector:
    matchLabels:
      app: shop-api
  template:
    metadata:
      labels:
        app: shop-api
    spec:
      containers:
      - name: api
        image: gcr.io/acme/shop-api:stable
`

const MigrateJobYAML = `apiVersion: batch/v1
kind: Job
metadata:
  name: shop-migrate
spec:
  backoffLimit: 1
  template:
    spec:
      containers:
      - name: migrate
        image: gcr.io/acme/shop-migrate
        command: ["/app/migrate", "--dbAddr", "shop-db:5432"]
      restartPolicy: Never
`

const NamespaceYAML = `apiVersion: v1
kind: Namespace
metadata:
  name: shop
`

const TwoContainersYAML = `
apiVersion: apps/v1
kind: Deployment
metadata:
  name: shop-web
spec:
  selector:
    matchLabels:
      app: shop-web
  template:
    metadata:
      labels:
        app: shop-web
    spec:
      containers:
      - name: web
        image: gcr.io/acme/shop-web
        ports:
        - containerPort: 3000
      - name: nginx
        image: nginx:1.25
        ports:
        - containerPort: 80
`

// A custom resource with an image field nested in its spec. There is no
// typed API for it, so parsing falls back to unstructured objects.
const CronWorkerCRYAML = `
apiVersion: acme.dev/v1
kind: CronWorker
metadata:
  name: shop-reindex
spec:
  schedule: "*/10 * * * *"
  template:
    image: gcr.io/acme/shop-worker
    args: ["reindex"]
`

const PodYAML = `
apiVersion: v1
kind: Pod
metadata:
  name: shop-debug
spec:
  containers:
  - name: debug
    image: gcr.io/acme/shop-debug
`
